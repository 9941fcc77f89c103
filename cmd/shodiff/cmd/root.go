package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/corey/shodiff/internal/app"
	"github.com/corey/shodiff/internal/domain/baseline"
	"github.com/corey/shodiff/internal/ports"
	"github.com/spf13/cobra"
)

var (
	flagBaseline bool
	flagDiff     bool
	flagConfig   string
	flagColor    string
	flagNoColor  bool
	flagLogLevel string
)

// newProvider builds the search provider; replaced in tests.
var newProvider = func(a *app.App) (ports.SearchProvider, error) {
	return a.NewProvider()
}

var rootCmd = &cobra.Command{
	Use:   "shodiff <keyword>",
	Short: "Diff Shodan search results against a stored baseline",
	Long: "Searches Shodan for hosts matching <keyword> and prints one line per host.\n" +
		"--baseline stores the result as the keyword's baseline; --diff compares it\n" +
		"with the stored baseline (and stores it if none exists yet).\n\n" +
		"The API key is read from $SHODAN_API_TOKEN. A keyword equal to a subcommand\n" +
		"name (cache, config) runs that subcommand instead.",
	Args:          usageArgs(cobra.ExactArgs(1)),
	RunE:          runSearch,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// usageArgs marks positional argument errors as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	return execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", describeError(err))
		if ExitCode(err) == exitUsage {
			fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", rootCmd.Name())
		}
	}
	return err
}

// loadApp builds the app from the global flags.
func loadApp(cmd *cobra.Command) (*app.App, error) {
	a, err := app.New(app.Options{
		ConfigPath: flagConfig,
		LogLevel:   flagLogLevel,
		LogOutput:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// newPrinter resolves --color / --no-color for cmd's output stream.
func newPrinter(cmd *cobra.Command) (printer, error) {
	color, err := resolveColor(flagColor, flagNoColor)
	if err != nil {
		return printer{}, usageError(err)
	}
	return printer{w: cmd.OutOrStdout(), color: color}, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	req := baseline.Request{Term: args[0], Baseline: flagBaseline, Diff: flagDiff}

	// Conflicting intent fails before any credential, network or store access.
	if _, err := req.Intent(); err != nil {
		return usageError(err)
	}

	out, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	provider, err := newProvider(a)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Searching...")
	rep, err := a.Runner(provider).Run(cmd.Context(), req)
	if rep != nil && rep.Fresh != nil {
		out.printFresh(rep.Fresh)
	}
	if err != nil {
		return err
	}
	out.printReport(rep)
	return nil
}

func init() {
	f := rootCmd.Flags()
	f.BoolVar(&flagBaseline, "baseline", false, "Reset the baseline for <keyword>")
	f.BoolVar(&flagDiff, "diff", false, "Diff the result against the baseline for <keyword>")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default .shodiff/config.yaml)")
	pf.StringVar(&flagColor, "color", "auto", "Color output: auto, always, never")
	pf.BoolVar(&flagNoColor, "no-color", false, "Suppress color output")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})

	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
}
