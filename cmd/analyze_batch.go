package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/corrloom-cli/internal/parser"
)

var (
	abFlags     runFlags
	abQuiet     bool
	abKeepGoing bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files with progress",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var files, skipped []string
		seen := map[string]struct{}{}
		for _, arg := range args {
			matches, _ := filepath.Glob(arg)
			if len(matches) == 0 {
				// treat as literal path if exists
				if _, err := os.Stat(arg); err == nil {
					matches = []string{arg}
				}
			}
			for _, m := range matches {
				if _, ok := seen[m]; ok {
					continue
				}
				seen[m] = struct{}{}
				if !parser.Supported(m) {
					skipped = append(skipped, m)
					continue
				}
				files = append(files, m)
			}
		}
		if len(files) == 0 {
			if len(skipped) > 0 {
				return fmt.Errorf("no supported input files matched (skipped %d)", len(skipped))
			}
			return fmt.Errorf("no input files matched")
		}
		sort.Strings(files)
		sort.Strings(skipped)

		s, err := abFlags.resolve(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !abQuiet {
			for _, m := range skipped {
				fmt.Fprintf(out, "⚠ Skipping %s: %v\n", filepath.Base(m), parser.ErrUnsupported)
			}
		}
		total := len(files)
		failed := 0
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			r, err := analyzeFile(cmd.Context(), out, path, s, false)
			if err != nil {
				if !abKeepGoing {
					return err
				}
				failed++
				fmt.Fprintf(out, "⚠ Skipped %s: %v\n", filepath.Base(path), err)
				continue
			}
			if !abQuiet {
				printRunSummary(out, r)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abFlags.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	analyzeBatchCmd.Flags().BoolVar(&abKeepGoing, "keep-going", false, "continue with the remaining files after a failure")
}
