// Command dash is the engine's CLI: eval, run, repl, check and dump
// subcommands over a compiled bytecode artifact (§6). There is no
// lexer/parser in this repo (SPEC_FULL.md §1: "remain external
// collaborators"), so every subcommand's input is a `.dashc` file produced
// by internal/bytecode.Serialize rather than `.js` source text — the same
// relationship the teacher's own `wazero` binary has to a `.wasm` file
// rather than to C or Rust source.
//
// Grounded on cmd/wazero/wazero.go's doMain/subcommand-dispatch shape, with
// the teacher's raw flag.FlagSet parsing replaced by spf13/cobra (§4.10):
// this CLI has five subcommands with distinct flag sets, the shape cobra's
// command tree is built for.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dashlang/dash/internal/bytecode"
	"github.com/dashlang/dash/internal/interner"
	"github.com/dashlang/dash/internal/vm"
)

var (
	verbose bool
	logger  zerolog.Logger
)

func main() {
	root := &cobra.Command{
		Use:   "dash",
		Short: "dash runs and inspects compiled JavaScript-engine bytecode",
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging (each VM logs its id when started)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	}

	root.AddCommand(newEvalCmd(), newRunCmd(), newReplCmd(), newCheckCmd(), newDumpCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadFunction deserializes a .dashc file into a root bytecode.Function
// (§6's on-disk CompileResult format).
func loadFunction(path string) (*interner.Interner, *bytecode.Function, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	fn, err := bytecode.Deserialize(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return interner.New(), fn, nil
}

// newVMForRun constructs a VM tagged with its own uuid (vm.ID, §4.10) and
// logs it at debug level, which a `-v` run prints.
func newVMForRun(in *interner.Interner) *vm.VM {
	v := vm.New(in)
	logger.Debug().Str("vm_id", v.ID.String()).Msg("vm started")
	return v
}
