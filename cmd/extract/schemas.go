package main

import (
	"github.com/spf13/cobra"

	"aria/internal/domain"
	"aria/internal/schema"
)

// schemasCmd prints the field schemas
var schemasCmd = &cobra.Command{
	Use:   "schemas [type]",
	Short: "Print transaction field schemas",
	Long: `Print the fields of every supported transaction type, or of one type.

Examples:
  aria-extract schemas
  aria-extract schemas hotel_booking -o yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := schema.Default()
		if len(args) == 1 {
			desc, err := registry.Describe(domain.TransactionType(args[0]))
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outputFormat, desc)
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, registry.DescribeAll())
	},
}
