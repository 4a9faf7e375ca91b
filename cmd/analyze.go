package cmd

import (
	"github.com/spf13/cobra"
)

var (
	anaFlags  runFlags
	anaStdout bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Compute correlation matrices for a CSV/TSV/XLSX file and list strong pairs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := anaFlags.resolve(cmd)
		if err != nil {
			return err
		}
		r, err := analyzeFile(cmd.Context(), cmd.OutOrStdout(), args[0], s, anaStdout)
		if err != nil {
			return err
		}
		if r != nil {
			printRunSummary(cmd.OutOrStdout(), r)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaFlags.register(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&anaStdout, "stdout", false, "print the Markdown summary instead of writing a result directory")
}
