package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/corrloom-cli/internal/config"
	"github.com/KaramelBytes/corrloom-cli/internal/report"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set corrloom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "threshold: %g\n", cfg.Threshold)
		fmt.Fprintf(out, "output_dir: %s\n", cfg.OutputDir)
		fmt.Fprintf(out, "formats: %s\n", strings.Join(cfg.Formats, ","))
		fmt.Fprintf(out, "scatter: %t\n", cfg.Scatter)
		fmt.Fprintf(out, "workers: %d\n", cfg.Workers)
		fmt.Fprintf(out, "max_rows: %d\n", cfg.MaxRows)
		fmt.Fprintf(out, "max_columns: %d\n", cfg.MaxColumns)
		fmt.Fprintf(out, "max_cells: %d\n", cfg.MaxCells)
		if cfg.Decimal != "" {
			fmt.Fprintf(out, "decimal: %q\n", cfg.Decimal)
		}
		if cfg.Thousands != "" {
			fmt.Fprintf(out, "thousands: %q\n", cfg.Thousands)
		}
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		fmt.Fprintf(out, "server_addr: %s\n", cfg.ServerAddr)
		fmt.Fprintf(out, "server_max_body_mb: %d\n", cfg.ServerMaxBodyMB)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		next := *cfg
		if err := setKey(&next, key, val); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		*cfg = next
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setKey(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "threshold":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil {
			return fmt.Errorf("invalid float for threshold: %w", perr)
		}
		c.Threshold = f
	case "output_dir":
		c.OutputDir = val
	case "formats":
		fmts, perr := report.ParseFormats([]string{val})
		if perr != nil {
			return perr
		}
		c.Formats = fmts
	case "scatter":
		b, perr := strconv.ParseBool(val)
		if perr != nil {
			return fmt.Errorf("invalid bool for scatter: %w", perr)
		}
		c.Scatter = b
	case "workers":
		c.Workers, err = atoi()
	case "max_rows":
		c.MaxRows, err = atoi()
	case "max_columns":
		c.MaxColumns, err = atoi()
	case "max_cells":
		i, perr := strconv.ParseInt(val, 10, 64)
		if perr != nil || i < 0 {
			return fmt.Errorf("invalid int for max_cells: %v", val)
		}
		c.MaxCells = i
	case "decimal":
		if _, perr := parseCoercion(val, ""); perr != nil {
			return perr
		}
		c.Decimal = separatorValue(val)
	case "thousands":
		if _, perr := parseCoercion("", val); perr != nil {
			return perr
		}
		c.Thousands = separatorValue(val)
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
		}
	case "log_format":
		switch val {
		case "console", "json":
			c.LogFormat = val
		default:
			return fmt.Errorf("invalid log_format: %s (use console or json)", val)
		}
	case "server_addr":
		c.ServerAddr = val
	case "server_max_body_mb":
		c.ServerMaxBodyMB, err = atoi()
	default:
		return fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(cfgpkg.Keys, ", "))
	}
	return err
}

// separatorValue stores separators as the single character the config
// validator expects.
func separatorValue(val string) string {
	switch strings.ToLower(val) {
	case "comma":
		return ","
	case "dot":
		return "."
	case "space":
		return " "
	case "auto":
		return "auto"
	}
	return val
}
