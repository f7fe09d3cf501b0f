package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/dubboard/internal/output"
)

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "List board columns and their types",
	Long: `Lists the board's columns. The column id is what --filter, --sort,
--set and --group-by accept; the type decides how values are coerced,
filtered and ordered.`,
	Args: cobra.NoArgs,
	RunE: runColumns,
}

func init() {
	rootCmd.AddCommand(columnsCmd)
}

func runColumns(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, cfg.Columns)
	}

	for _, col := range cfg.Columns {
		field := ""
		if col.FieldName() != col.ID {
			field = "-> " + col.FieldName()
		}
		fmt.Fprintf(os.Stdout, "%-14s %-13s %-14s %s\n", col.ID, col.Type, col.Title(), field)
	}
	return nil
}
