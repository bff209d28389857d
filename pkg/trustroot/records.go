package trustroot

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/hypermesh/stoq/pkg/storage"
)

const recordBucket = "trustroot_records"

// record is the durable form of a node's registered addresses.
type record struct {
	NodeID    string    `json:"node_id"`
	Addresses []string  `json:"addresses"`
	UpdatedAt time.Time `json:"updated_at"`
}

func loadRecord(b storage.Bucket, name string) (*record, error) {
	raw, err := b.Get([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("trustroot: read record %s: %w", name, err)
	}
	if raw == nil {
		return nil, nil
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("trustroot: decode record %s: %w", name, err)
	}
	return &rec, nil
}

func saveRecord(b storage.Bucket, name string, rec *record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("trustroot: encode record %s: %w", name, err)
	}
	if err := b.Put([]byte(name), raw); err != nil {
		return fmt.Errorf("trustroot: write record %s: %w", name, err)
	}
	return nil
}

func parseIPv6Addresses(addrs []string) ([]net.IP, error) {
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip == nil || ip.To4() != nil {
			return nil, fmt.Errorf("trustroot: %q is not an IPv6 literal", a)
		}
		ips = append(ips, ip)
	}
	return ips, nil
}
