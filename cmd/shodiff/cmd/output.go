package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/corey/shodiff/internal/domain/baseline"
	"github.com/corey/shodiff/internal/domain/snapshot"
	"github.com/corey/shodiff/internal/ports"
	"github.com/olekukonko/tablewriter"
)

// ANSI color codes for terminal output.
const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorCyan  = "\033[36m"
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorGray  = "\033[90m"
)

// printer writes user-facing output, with or without ANSI colors.
type printer struct {
	w     io.Writer
	color bool
}

// paint wraps s in code when color is enabled.
func (p printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + colorReset
}

// formatResult renders a result as one line per host, or a placeholder for
// an empty host set.
func (p printer) formatResult(r *ports.SearchResult) string {
	if r.HostCount() == 0 {
		return p.paint(colorGray, "(no hosts)")
	}
	return r.String()
}

// printFresh prints the freshly searched result followed by a blank line.
func (p printer) printFresh(r *ports.SearchResult) {
	fmt.Fprintln(p.w, p.formatResult(r))
	fmt.Fprintln(p.w)
}

// printReport prints the diff / baseline part of a run:
//
//	Differences from cached result: None (Same same).
//	Differences from cached result: Same same but different!
//	No cached result available for compare; Caching results for next time... Done.
func (p printer) printReport(rep *baseline.Report) {
	switch rep.Outcome {
	case baseline.OutcomeNoDiff:
		fmt.Fprintf(p.w, "Differences from cached result: %s\n", p.paint(colorGreen, "None (Same same)."))

	case baseline.OutcomeDiffFound:
		fmt.Fprintf(p.w, "Differences from cached result: %s\n\n", p.paint(colorRed, "Same same but different!"))
		p.printDiff(rep.Diff)
		fmt.Fprintln(p.w)
		fmt.Fprintln(p.w, p.paint(colorBold, "Cached result:"))
		fmt.Fprintln(p.w, p.formatResult(rep.Cached))
		fmt.Fprintln(p.w)

	case baseline.OutcomeNoCacheBaselined:
		fmt.Fprintln(p.w, "No cached result available for compare; Caching results for next time... Done.")

	case baseline.OutcomeBaselined:
		fmt.Fprintln(p.w, "Caching results for next time... Done.")
	}
}

// printDiff renders the structured diff as a table, one row per changed host.
func (p printer) printDiff(d snapshot.Diff) {
	table := tablewriter.NewWriter(p.w)
	table.SetHeader([]string{"Change", "IP", "Ports Added", "Ports Removed"})
	table.SetAutoWrapText(false)

	for _, ip := range d.AddedHosts {
		table.Append([]string{"+ host", ip, "", ""})
	}
	for _, ip := range d.RemovedHosts {
		table.Append([]string{"- host", ip, "", ""})
	}
	for _, c := range d.Changed {
		table.Append([]string{"~ ports", c.IP, joinPorts(c.AddedPorts), joinPorts(c.RemovedPorts)})
	}

	s := d.Summary()
	table.SetFooter([]string{
		"",
		fmt.Sprintf("+%d -%d ~%d hosts", s.HostsAdded, s.HostsRemoved, s.HostsChanged),
		fmt.Sprintf("+%d", s.PortsAdded),
		fmt.Sprintf("-%d", s.PortsRemoved),
	})
	table.Render()
}

func joinPorts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}

// printTerms renders the cache list table.
func (p printer) printTerms(rows []termRow) {
	if len(rows) == 0 {
		fmt.Fprintln(p.w, "No cached results.")
		return
	}
	table := tablewriter.NewWriter(p.w)
	table.SetHeader([]string{"Term", "Hosts", "Ports", "Cached At"})
	table.SetAutoWrapText(false)
	for _, r := range rows {
		table.Append([]string{
			r.term,
			strconv.Itoa(r.hosts),
			strconv.Itoa(r.ports),
			r.cachedAt,
		})
	}
	table.Render()
}
