package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mitodl/ol-infrastructure-sub004/lib/secrets"
)

func newSecretCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "secret <file> <key>",
		Short: "Decrypt a sops file and print one value",
		Long: `Decrypt a sops-encrypted YAML file and print the value at the given
dotted key path, e.g. "database.password". Used by deploy tasks to pull a
single credential without materializing the whole document.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, key := args[0], args[1]

			s, err := ctx.settings()
			if err != nil {
				return err
			}

			decrypter := secrets.Decrypter{Binary: s.Secrets.SopsBinary}
			doc, err := decrypter.Decrypt(cmd.Context(), path)
			if err != nil {
				return err
			}
			ctx.log().Info("decrypted secrets file", zap.String("path", path))

			value, err := secrets.String(doc, key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}
