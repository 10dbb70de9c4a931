package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCheckCmd decodes an artifact without running it, reporting success or
// the decode error — grounded on cmd/wazero/wazero.go's doCompile, which
// also only validates a module (compiles it into the runtime's cache)
// without invoking any export.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.dashc>",
		Short: "Validate a compiled bytecode file without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, fn, err := loadFunction(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("ok: %d locals, %d params, %d bytes of bytecode\n",
				fn.LocalCount, fn.ParamCount, len(fn.Instructions))
			return nil
		},
	}
}
