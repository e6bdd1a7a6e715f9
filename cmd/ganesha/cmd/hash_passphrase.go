package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/G-TechSD/ganesha-ai/internal/domain/auth"
)

var hashPassphraseCmd = &cobra.Command{
	Use:   "hash-passphrase [passphrase]",
	Short: "Generate an Argon2id hash for the confirmation passphrase",
	Long: `Generate an Argon2id PHC-format hash of a confirmation passphrase for
use in config as confirmation_passphrase_hash.

Setting this field requires the passphrase before "ganesha reset" or
other destructive config operations proceed.

Example:
  ganesha hash-passphrase "my-confirmation-phrase"
  # Output: $argon2id$v=19$m=48128,t=1,p=1$...

Security note: the passphrase will appear in shell history. Consider
clearing history after use or passing it via an environment variable:
  ganesha hash-passphrase "$GANESHA_CONFIRMATION_PASSPHRASE"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassphrase(args[0])
		if err != nil {
			return fmt.Errorf("hash passphrase: %w", err)
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPassphraseCmd)
}
