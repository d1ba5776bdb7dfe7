// Package main implements aria-extract, a CLI for running the extraction engine locally.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// outputFormat is json or yaml
	outputFormat string
	// version information
	version = "dev"
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "aria-extract",
	Short: "Run transaction extraction from the command line",
	Long: `aria-extract runs the extraction engine against a conversation transcript
without the HTTP server. Providers are configured with the same ARIA_ environment
variables as the server; --evidence replays a recorded model response instead.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "output format: json or yaml")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(schemasCmd)
	rootCmd.AddCommand(tokenCmd)
}
