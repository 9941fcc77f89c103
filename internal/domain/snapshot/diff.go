// Package snapshot computes set-level differences between two search results:
// hosts that appeared or disappeared, and ports opened or closed per host.
package snapshot

import (
	"sort"

	"github.com/corey/shodiff/internal/ports"
)

// Diff is the difference from a cached baseline to a fresh result.
type Diff struct {
	AddedHosts   []string     // IPs present only in the fresh result
	RemovedHosts []string     // IPs present only in the baseline
	Changed      []HostChange // IPs in both whose port sets differ
}

// HostChange lists the port delta for one IP present in both results.
type HostChange struct {
	IP           string
	AddedPorts   []int
	RemovedPorts []int
}

// Summary holds aggregate counts for a Diff.
type Summary struct {
	HostsAdded   int
	HostsRemoved int
	HostsChanged int
	PortsAdded   int
	PortsRemoved int
}

// Compare returns the diff from cached to fresh. A nil result is treated as an
// empty host set. All slices are sorted so output is deterministic.
func Compare(cached, fresh *ports.SearchResult) Diff {
	old := hostIndex(cached)
	cur := hostIndex(fresh)

	var d Diff
	for ip, curPorts := range cur {
		oldPorts, ok := old[ip]
		if !ok {
			d.AddedHosts = append(d.AddedHosts, ip)
			continue
		}
		added := minus(curPorts, oldPorts)
		removed := minus(oldPorts, curPorts)
		if len(added) > 0 || len(removed) > 0 {
			d.Changed = append(d.Changed, HostChange{IP: ip, AddedPorts: added, RemovedPorts: removed})
		}
	}
	for ip := range old {
		if _, ok := cur[ip]; !ok {
			d.RemovedHosts = append(d.RemovedHosts, ip)
		}
	}

	sort.Strings(d.AddedHosts)
	sort.Strings(d.RemovedHosts)
	sort.Slice(d.Changed, func(i, j int) bool { return d.Changed[i].IP < d.Changed[j].IP })
	return d
}

// Empty reports whether the two compared results had equal host sets.
func (d Diff) Empty() bool {
	return len(d.AddedHosts) == 0 && len(d.RemovedHosts) == 0 && len(d.Changed) == 0
}

// Summary aggregates the diff into counts.
func (d Diff) Summary() Summary {
	s := Summary{
		HostsAdded:   len(d.AddedHosts),
		HostsRemoved: len(d.RemovedHosts),
		HostsChanged: len(d.Changed),
	}
	for _, c := range d.Changed {
		s.PortsAdded += len(c.AddedPorts)
		s.PortsRemoved += len(c.RemovedPorts)
	}
	return s
}

func hostIndex(r *ports.SearchResult) map[string]map[int]struct{} {
	idx := make(map[string]map[int]struct{})
	if r == nil {
		return idx
	}
	for _, h := range r.Hosts {
		set, ok := idx[h.IP]
		if !ok {
			set = make(map[int]struct{}, len(h.Ports))
			idx[h.IP] = set
		}
		for n := range h.PortSet() {
			set[n] = struct{}{}
		}
	}
	return idx
}

// minus returns a \ b, sorted.
func minus(a, b map[int]struct{}) []int {
	var out []int
	for n := range a {
		if _, ok := b[n]; !ok {
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}
