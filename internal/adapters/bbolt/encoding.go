// Record encoding for baseline blobs.
//
// Format v1 (one value per term key):
//
//	version: 1 byte (0x01)
//	body:    gob-encoded record
//
// The whole host/port tree lives inside the value, so deleting the key removes
// every host and port with it.
package bbolt

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/corey/shodiff/internal/ports"
)

const recordVersion byte = 1

// record is the persisted form of ports.SearchResult.
type record struct {
	Term      string
	Timestamp time.Time
	Hosts     []hostRecord
}

type hostRecord struct {
	IP       string
	Hostname string
	Ports    []int
}

// encodeRecord serialises a SearchResult into a versioned blob.
func encodeRecord(r *ports.SearchResult) ([]byte, error) {
	rec := record{
		Term:      r.Term,
		Timestamp: r.Timestamp,
		Hosts:     make([]hostRecord, 0, len(r.Hosts)),
	}
	for _, h := range r.Hosts {
		hr := hostRecord{IP: h.IP, Hostname: h.Hostname}
		for _, p := range h.Ports {
			hr.Ports = append(hr.Ports, p.Number)
		}
		rec.Hosts = append(rec.Hosts, hr)
	}

	var buf bytes.Buffer
	buf.WriteByte(recordVersion)
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeRecord parses a versioned blob back into a canonical SearchResult.
func decodeRecord(data []byte) (*ports.SearchResult, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("record too short: %d bytes", len(data))
	}
	if data[0] != recordVersion {
		return nil, fmt.Errorf("unsupported record version %d", data[0])
	}

	var rec record
	if err := gob.NewDecoder(bytes.NewReader(data[1:])).Decode(&rec); err != nil {
		return nil, err
	}

	hosts := make([]ports.Host, 0, len(rec.Hosts))
	for _, hr := range rec.Hosts {
		h := ports.Host{IP: hr.IP, Hostname: hr.Hostname}
		for _, n := range hr.Ports {
			h.Ports = append(h.Ports, ports.Port{Number: n})
		}
		hosts = append(hosts, h)
	}
	return ports.NewSearchResult(rec.Term, rec.Timestamp, hosts), nil
}
