package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mitodl/ol-infrastructure-sub004/baker/recipes"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known pipelines and bake recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Pipelines:")
			for _, name := range pipelineNames() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			fmt.Fprintln(out, "Recipes:")
			for _, name := range recipes.Names() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}
}
