package ports

import "context"

// SearchProvider resolves a search term into a SearchResult by querying a
// remote host-search service. The concrete implementation (Shodan) lives in
// internal/adapters/shodan.
//
// Implementations resolve the distinct set of matching IPs first, then the
// open ports of each IP. Failures are returned as-is; callers do not retry.
type SearchProvider interface {
	Search(ctx context.Context, term string) (*SearchResult, error)
}
