package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/dashlang/dash/internal/bytecode"
	"github.com/dashlang/dash/internal/interner"
	"github.com/dashlang/dash/internal/vm"
)

// newReplCmd is a line-editing loop over compiled-bytecode artifacts
// (§6): since this repo has no lexer/parser, there is no JS source text to
// read a line of, so each line is the path to a `.dashc` file to load and
// run against one persistent VM/interner pair — letting a REPL session
// build up global state across several small compiled snippets the way a
// normal JS REPL builds it up across typed lines.
//
// Grounded on cmd/wazero/wazero.go's flag-driven subcommand loop combined
// with liner's (§4.10) standard history-file-backed Prompt loop.
func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactively load and run .dashc files against one persistent VM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl()
		},
	}
}

func runRepl() error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := filepath.Join(os.TempDir(), ".dash_repl_history")
	if f, err := os.Open(histPath); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}()

	in := interner.New()
	v := newVMForRun(in)
	fmt.Println("dash repl — enter a .dashc file path, or :quit")

	for {
		input, err := line.Prompt("dash> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err.Error() == "EOF" {
				return nil
			}
			return err
		}
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if input == ":quit" || input == ":q" {
			return nil
		}

		data, err := os.ReadFile(input)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fn, err := bytecode.Deserialize(data)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		result, thrown := v.Eval(fn)
		if thrown != nil {
			fmt.Fprintln(os.Stderr, thrown)
			continue
		}
		fmt.Println(vm.InspectError(in, nil, result))
	}
}
