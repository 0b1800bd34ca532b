package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "exe",
		Short: "Print the lightningd executable that run would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := ctx.resolveExecutable()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, map[string]string{
					"path":   res.Path,
					"source": string(res.Source),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Include where the executable was found")
	return cmd
}
