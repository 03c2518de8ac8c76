package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/marketdash/credentials"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save Alpaca API credentials to the secrets file",
	Long: `Login prompts for an Alpaca API key pair and writes it to the secrets
file, readable only by you. The secret is never echoed. Later commands
pick the file up automatically.

Example:
  marketdash login
  marketdash login --secrets ./secrets.yaml`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	path := secretsFile
	if path == "" {
		path = credentials.DefaultSecretsFile()
	}
	if path == "" {
		return fmt.Errorf("cannot determine secrets location, pass --secrets")
	}

	key, secret, err := credentials.PromptPair()
	if err != nil {
		return err
	}
	if err := credentials.Save(path, key, secret); err != nil {
		return err
	}

	fmt.Printf("✓ Credentials saved to %s\n", path)
	return nil
}
