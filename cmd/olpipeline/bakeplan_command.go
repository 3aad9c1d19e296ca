package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mitodl/ol-infrastructure-sub004/baker"
	"github.com/mitodl/ol-infrastructure-sub004/baker/recipes"
	"github.com/mitodl/ol-infrastructure-sub004/lib/settings"
)

// recipeCatalog rebinds the environment-sensitive recipes to the loaded
// settings; everything else comes from the catalog as-is.
func recipeCatalog(s *settings.Settings) map[string]baker.Recipe {
	catalog := recipes.All()
	catalog["consul"] = recipes.ConsulServer(s.Environment)
	return catalog
}

func newBakePlanCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "bake-plan <recipe>",
		Short: "Write the bake plan for an image recipe as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			s, err := ctx.settings()
			if err != nil {
				return err
			}

			recipe, ok := recipeCatalog(s)[name]
			if !ok {
				return fmt.Errorf("unknown recipe %q (known: %s)", name, strings.Join(recipes.Names(), ", "))
			}
			ctx.log().Info("building bake plan",
				zap.String("recipe", name),
				zap.Int("steps", len(recipe.Steps)),
			)

			var out io.Writer = cmd.OutOrStdout()
			if outputPath != "" {
				f, err := os.Create(outputPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outputPath, err)
				}
				defer f.Close()
				out = f
			}
			if err := recipe.WritePlan(out); err != nil {
				return fmt.Errorf("write plan for %s: %w", name, err)
			}

			if outputPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination file (defaults to stdout)")
	return cmd
}
