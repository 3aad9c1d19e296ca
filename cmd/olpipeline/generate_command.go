package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "generate <pipeline>",
		Short: "Write a pipeline document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			builder, ok := pipelineCatalog()[name]
			if !ok {
				return fmt.Errorf("unknown pipeline %q (known: %s)", name, strings.Join(pipelineNames(), ", "))
			}

			s, err := ctx.settings()
			if err != nil {
				return err
			}

			pipeline, err := builder(s)
			if err != nil {
				return fmt.Errorf("build pipeline %s: %w", name, err)
			}
			ctx.log().Info("built pipeline",
				zap.String("pipeline", name),
				zap.Int("jobs", len(pipeline.Jobs)),
				zap.Int("resources", len(pipeline.Resources)),
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
			if err := pipeline.Write(out); err != nil {
				return fmt.Errorf("write pipeline %s: %w", name, err)
			}

			if outputPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outputPath)
				fmt.Fprintf(cmd.OutOrStdout(), "Apply it with: fly -t %s set-pipeline -p %s -c %s\n",
					s.Concourse.Target, name, outputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination file (defaults to stdout)")
	return cmd
}
