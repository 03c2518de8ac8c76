package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the marketdash CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("marketdash version %s\n", version)
		fmt.Println("A multi-symbol stock analysis dashboard for the terminal")
		fmt.Println("https://github.com/rustyeddy/marketdash")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
