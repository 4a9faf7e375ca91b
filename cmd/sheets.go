package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/corrloom-cli/internal/parser"
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets <file.xlsx>",
	Short: "List the sheets of an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sheets, err := parser.ListSheets(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(sheets) == 0 {
			fmt.Fprintln(out, "(no sheets)")
			return nil
		}
		for i, s := range sheets {
			fmt.Fprintf(out, "%d. %s\n", i+1, s.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
}
