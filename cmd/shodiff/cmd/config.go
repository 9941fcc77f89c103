package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows the resolved config file, store driver and path, log settings and whether the API key is set. No network or store access.",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	out, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	cfg := a.Config

	cfgPath := flagConfig
	if cfgPath == "" {
		cfgPath = a.Paths.Config
	}
	cfgState := out.paint(colorGray, "(not found, using defaults)")
	if _, err := os.Stat(cfgPath); err == nil {
		cfgState = out.paint(colorGreen, "✓")
	}

	keyState := out.paint(colorRed, fmt.Sprintf("✗ $%s not set", cfg.Shodan.TokenEnv))
	if _, err := cfg.APIKey(); err == nil {
		keyState = out.paint(colorGreen, fmt.Sprintf("✓ $%s set", cfg.Shodan.TokenEnv))
	}

	logDir := cfg.Log.Dir
	if logDir == "" && cfg.Log.Files {
		logDir = a.Paths.LogDir
	}
	if logDir == "" {
		logDir = "-"
	}

	w := out.w
	fmt.Fprintf(w, "%s\n", out.paint(colorBold, "shodiff config"))
	fmt.Fprintf(w, "  Config:       %s %s\n", out.paint(colorCyan, cfgPath), cfgState)
	fmt.Fprintf(w, "  Store:        %s (%s)\n", out.paint(colorCyan, a.StorePath()), cfg.Store.Driver)
	fmt.Fprintf(w, "  API:          %s\n", cfg.Shodan.BaseURL)
	fmt.Fprintf(w, "  API key:      %s\n", keyState)
	fmt.Fprintf(w, "  Timeout:      %s\n", cfg.Shodan.Timeout)
	fmt.Fprintf(w, "  Concurrency:  %d\n", cfg.Shodan.Concurrency)
	fmt.Fprintf(w, "  Log level:    %s\n", cfg.Log.Level)
	fmt.Fprintf(w, "  Log dir:      %s\n", logDir)
	return nil
}
