// Package shodan implements ports.SearchProvider over the Shodan REST API.
// One /shodan/host/search call resolves the matching IPs; one
// /shodan/host/{ip} call per distinct IP resolves its open ports.
package shodan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/corey/shodiff/internal/ports"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultBaseURL is the public Shodan API endpoint.
const DefaultBaseURL = "https://api.shodan.io"

// maxErrorBody caps how much of a non-200 body is read for the error message.
const maxErrorBody = 4096

// Options configures a Client.
type Options struct {
	BaseURL     string        // default DefaultBaseURL
	APIKey      string        // required
	Timeout     time.Duration // per-request timeout, default 30s
	Concurrency int           // parallel host lookups, default 1
	HTTPClient  *http.Client  // optional, overrides Timeout
	Logger      logrus.FieldLogger
}

// Client queries Shodan. Safe for concurrent use.
type Client struct {
	baseURL     string
	apiKey      string
	http        *http.Client
	concurrency int
	log         logrus.FieldLogger
	now         func() time.Time
}

var _ ports.SearchProvider = (*Client)(nil)

// New builds a Client. An empty APIKey yields ports.ErrMissingCredential.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ports.ErrMissingCredential
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("shodan base url: %w", err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	conc := opts.Concurrency
	if conc < 1 {
		conc = 1
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Client{
		baseURL:     base,
		apiKey:      opts.APIKey,
		http:        hc,
		concurrency: conc,
		log:         log.WithField("component", "shodan"),
		now:         time.Now,
	}, nil
}

// searchResponse is the subset of /shodan/host/search used here.
type searchResponse struct {
	Matches []struct {
		IPStr string `json:"ip_str"`
	} `json:"matches"`
	Total int `json:"total"`
}

// hostResponse is the subset of /shodan/host/{ip} used here.
type hostResponse struct {
	IPStr     string   `json:"ip_str"`
	Ports     []int    `json:"ports"`
	Hostnames []string `json:"hostnames"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Search resolves term into a SearchResult. IPs are deduplicated before port
// resolution; host lookups fan out up to the configured concurrency and are
// reassembled sorted by IP.
func (c *Client) Search(ctx context.Context, term string) (*ports.SearchResult, error) {
	started := c.now()

	ips, err := c.matchingIPs(ctx, term)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{"term": term, "ips": len(ips)}).Debug("search resolved")

	hosts := make([]ports.Host, len(ips))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, ip := range ips {
		g.Go(func() error {
			h, err := c.host(gctx, ip)
			if err != nil {
				return err
			}
			hosts[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return ports.NewSearchResult(term, started, hosts), nil
}

// matchingIPs returns the distinct, sorted IPs matching term.
func (c *Client) matchingIPs(ctx context.Context, term string) ([]string, error) {
	var resp searchResponse
	q := url.Values{}
	q.Set("query", term)
	if err := c.get(ctx, "/shodan/host/search", q, &resp); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(resp.Matches))
	ips := make([]string, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m.IPStr == "" {
			continue
		}
		if _, dup := seen[m.IPStr]; dup {
			continue
		}
		seen[m.IPStr] = struct{}{}
		ips = append(ips, m.IPStr)
	}
	sort.Strings(ips)
	return ips, nil
}

// host resolves the open ports of one IP.
func (c *Client) host(ctx context.Context, ip string) (ports.Host, error) {
	var resp hostResponse
	if err := c.get(ctx, "/shodan/host/"+url.PathEscape(ip), nil, &resp); err != nil {
		return ports.Host{}, err
	}

	h := ports.Host{IP: ip}
	if len(resp.Hostnames) > 0 {
		h.Hostname = resp.Hostnames[0]
	}
	for _, n := range resp.Ports {
		h.Ports = append(h.Ports, ports.Port{Number: n})
	}
	c.log.WithFields(logrus.Fields{"ip": ip, "ports": len(resp.Ports)}).Debug("host resolved")
	return h, nil
}

// get issues a GET against path with the API key appended and decodes the
// JSON body into v. Non-200 responses become errors carrying Shodan's
// "error" message. The key never appears in returned errors.
func (c *Client) get(ctx context.Context, path string, q url.Values, v interface{}) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("key", c.apiKey)
	reqURL := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("shodan %s: build request: %w", path, redact(err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("shodan %s: %w", path, redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		return &APIError{Path: path, StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("shodan %s: decode response: %w", path, err)
	}
	return nil
}

// redact strips the request URL (which carries the API key) from transport
// errors, keeping the underlying cause.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}

// APIError is a non-200 answer from the Shodan API.
type APIError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("shodan %s: HTTP %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("shodan %s: HTTP %d: %s", e.Path, e.StatusCode, e.Message)
}
