package ports

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// SearchResult is one full search outcome: the term plus the set of matching
// hosts and their open ports at a point in time.
//
// Hosts are unique by IP and kept sorted by IP; each host's ports are unique by
// number and sorted ascending. Build values with NewSearchResult so these hold.
type SearchResult struct {
	Term      string
	Hosts     []Host
	Timestamp time.Time // informational only, not part of equality
}

// Host is a single matching address and its open ports.
// Hostname is display-only and does not take part in equality.
type Host struct {
	IP       string
	Hostname string
	Ports    []Port
}

// Port is an open port number. Protocol is not modelled.
type Port struct {
	Number int
}

// NewSearchResult builds a canonical SearchResult. Hosts sharing an IP are
// merged (port union, first non-empty hostname wins), ports are deduplicated
// and sorted, and hosts are sorted by IP.
func NewSearchResult(term string, timestamp time.Time, hosts []Host) *SearchResult {
	byIP := make(map[string]*Host, len(hosts))
	order := make([]string, 0, len(hosts))
	for _, h := range hosts {
		existing, ok := byIP[h.IP]
		if !ok {
			cp := Host{IP: h.IP, Hostname: h.Hostname}
			cp.Ports = append(cp.Ports, h.Ports...)
			byIP[h.IP] = &cp
			order = append(order, h.IP)
			continue
		}
		if existing.Hostname == "" {
			existing.Hostname = h.Hostname
		}
		existing.Ports = append(existing.Ports, h.Ports...)
	}

	sort.Strings(order)
	canon := make([]Host, 0, len(order))
	for _, ip := range order {
		h := byIP[ip]
		h.Ports = canonicalPorts(h.Ports)
		canon = append(canon, *h)
	}

	return &SearchResult{Term: term, Hosts: canon, Timestamp: timestamp}
}

// canonicalPorts returns ports deduplicated by number and sorted ascending.
func canonicalPorts(ports []Port) []Port {
	if len(ports) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(ports))
	out := make([]Port, 0, len(ports))
	for _, p := range ports {
		if _, dup := seen[p.Number]; dup {
			continue
		}
		seen[p.Number] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// HostCount returns the number of hosts.
func (r *SearchResult) HostCount() int {
	if r == nil {
		return 0
	}
	return len(r.Hosts)
}

// Host returns the host with the given IP, or nil.
func (r *SearchResult) Host(ip string) *Host {
	if r == nil {
		return nil
	}
	for i := range r.Hosts {
		if r.Hosts[i].IP == ip {
			return &r.Hosts[i]
		}
	}
	return nil
}

// Equals reports whether both results hold the same host set. Host order,
// port order, term, timestamp and hostnames are ignored.
func (r *SearchResult) Equals(other *SearchResult) bool {
	if r == nil || other == nil {
		return r == other
	}
	if len(r.Hosts) != len(other.Hosts) {
		return false
	}
	index := make(map[string]*Host, len(other.Hosts))
	for i := range other.Hosts {
		index[other.Hosts[i].IP] = &other.Hosts[i]
	}
	if len(index) != len(r.Hosts) {
		return false
	}
	for i := range r.Hosts {
		match, ok := index[r.Hosts[i].IP]
		if !ok || !r.Hosts[i].Equals(*match) {
			return false
		}
	}
	return true
}

// Equals reports whether the hosts share an IP and an identical port set.
func (h Host) Equals(other Host) bool {
	if h.IP != other.IP {
		return false
	}
	mine := h.PortSet()
	theirs := other.PortSet()
	if len(mine) != len(theirs) {
		return false
	}
	for n := range mine {
		if _, ok := theirs[n]; !ok {
			return false
		}
	}
	return true
}

// PortSet returns the host's port numbers as a set.
func (h Host) PortSet() map[int]struct{} {
	set := make(map[int]struct{}, len(h.Ports))
	for _, p := range h.Ports {
		set[p.Number] = struct{}{}
	}
	return set
}

// PortNumbers returns the host's port numbers in ascending order.
func (h Host) PortNumbers() []int {
	nums := make([]int, 0, len(h.Ports))
	for n := range h.PortSet() {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// String renders one line per host as "<term> <ip> <port> <port> ...",
// lines sorted lexicographically and joined by newline. An empty host set
// renders as "".
func (r *SearchResult) String() string {
	if r == nil || len(r.Hosts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(r.Hosts))
	for _, h := range r.Hosts {
		var sb strings.Builder
		sb.WriteString(r.Term)
		sb.WriteByte(' ')
		sb.WriteString(h.IP)
		for _, n := range h.PortNumbers() {
			sb.WriteByte(' ')
			sb.WriteString(strconv.Itoa(n))
		}
		lines = append(lines, sb.String())
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
