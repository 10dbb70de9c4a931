package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dashlang/dash/internal/vm"
)

// newRunCmd is grounded on cmd/wazero/wazero.go's doRun: load an artifact,
// instantiate a fresh runtime, invoke the entry point, report the result
// and (with -t) how long it took.
func newRunCmd() *cobra.Command {
	var timing bool
	cmd := &cobra.Command{
		Use:   "run <file.dashc>",
		Short: "Run a compiled bytecode file to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, fn, err := loadFunction(args[0])
			if err != nil {
				return err
			}
			v := newVMForRun(in)
			start := time.Now()
			result, evalErr := v.Eval(fn)
			if evalErr != nil {
				return evalErr
			}
			fmt.Println(vm.InspectError(in, nil, result))
			if timing {
				fmt.Printf("completed %s\n", humanize.Time(start))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&timing, "timing", "t", false, "print elapsed execution time")
	return cmd
}

// newEvalCmd is run's sibling for a single expression artifact (a .dashc
// file compiled from one bare expression statement rather than a full
// program) — distinct subcommands per §6, identical execution path since
// both ultimately just invoke the root function.
func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <file.dashc>",
		Short: "Evaluate a compiled single-expression bytecode file and print its value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, fn, err := loadFunction(args[0])
			if err != nil {
				return err
			}
			v := newVMForRun(in)
			result, evalErr := v.Eval(fn)
			if evalErr != nil {
				return evalErr
			}
			fmt.Println(vm.InspectError(in, nil, result))
			return nil
		},
	}
	return cmd
}
