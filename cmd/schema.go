package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/chatpulse/pkg/report"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the analysis result",
		Long: `Print the JSON Schema describing the output of 'chatpulse analyze --output json'
and of POST /api/v1/analyze.

Examples:
  chatpulse schema
  chatpulse schema > analysis-result.schema.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := report.SchemaJSON()
			if err != nil {
				return fmt.Errorf("building schema: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
