package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/corrloom-cli/internal/run"
)

var runsOutputDir string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List result directories written by analyze",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := runsOutputDir
		if !cmd.Flags().Changed("output-dir") && cfg != nil {
			dir = cfg.OutputDir
		}
		runs, err := run.List(dir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "(no runs)")
			return nil
		}
		for _, r := range runs {
			var parts []string
			for _, m := range r.Measures {
				parts = append(parts, fmt.Sprintf("%s=%d", m.Slug(), r.Pairs[m]))
			}
			fmt.Fprintf(out, "- %s  %s  %s  threshold=%g  %s\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Dir(), r.Source.Name, r.Threshold, strings.Join(parts, " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().StringVarP(&runsOutputDir, "output-dir", "o", ".", "directory holding correlation_result_* directories")
}
