package cmd

import (
	"fmt"
	"time"

	"github.com/corey/shodiff/internal/ports"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or prune stored baselines",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached terms with host and port counts",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runCacheList,
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <term>",
	Short: "Print the cached baseline for a term",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  runCacheShow,
}

var cacheForgetCmd = &cobra.Command{
	Use:   "forget <term>",
	Short: "Delete the cached baseline for a term",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  runCacheForget,
}

// termRow is one line of `cache list`.
type termRow struct {
	term     string
	hosts    int
	ports    int
	cachedAt string
}

// withStore opens the configured store, runs fn and closes the store.
func withStore(cmd *cobra.Command, fn func(printer, ports.BaselineStore) error) (err error) {
	out, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.OpenStore()
	if err != nil {
		return fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close: %w", ports.ErrStoreUnavailable, cerr)
		}
	}()
	return fn(out, store)
}

func runCacheList(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(out printer, store ports.BaselineStore) error {
		terms, err := store.Terms()
		if err != nil {
			return fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, err)
		}
		rows := make([]termRow, 0, len(terms))
		for _, term := range terms {
			r, err := store.Lookup(term)
			if err != nil {
				return fmt.Errorf("%w: lookup %q: %w", ports.ErrStoreUnavailable, term, err)
			}
			if r == nil {
				continue
			}
			row := termRow{term: term, hosts: r.HostCount(), cachedAt: "-"}
			for _, h := range r.Hosts {
				row.ports += len(h.Ports)
			}
			if !r.Timestamp.IsZero() {
				row.cachedAt = r.Timestamp.Local().Format(time.RFC3339)
			}
			rows = append(rows, row)
		}
		out.printTerms(rows)
		return nil
	})
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	term := args[0]
	return withStore(cmd, func(out printer, store ports.BaselineStore) error {
		r, err := store.Lookup(term)
		if err != nil {
			return fmt.Errorf("%w: lookup %q: %w", ports.ErrStoreUnavailable, term, err)
		}
		if r == nil {
			fmt.Fprintf(out.w, "No cached result for %q.\n", term)
			return nil
		}
		fmt.Fprintf(out.w, "%s (%d hosts, cached %s)\n", out.paint(colorBold, "Cached result:"),
			r.HostCount(), r.Timestamp.Local().Format(time.RFC3339))
		fmt.Fprintln(out.w, out.formatResult(r))
		return nil
	})
}

func runCacheForget(cmd *cobra.Command, args []string) error {
	term := args[0]
	return withStore(cmd, func(out printer, store ports.BaselineStore) error {
		if err := store.Delete(term); err != nil {
			return fmt.Errorf("%w: delete %q: %w", ports.ErrStoreUnavailable, term, err)
		}
		fmt.Fprintf(out.w, "Forgot cached result for %q.\n", term)
		return nil
	})
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheForgetCmd)
}
