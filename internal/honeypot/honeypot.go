// Package honeypot provides a JSON-file-backed seed set implementation of
// chain.HoneypotOracle, per spec.md §6's "honeypots.json" side-input.
// Production deployments may swap in a live oracle behind the same
// interface (spec.md §9).
package honeypot

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Record is one seeded honeypot entry.
type Record struct {
	Address string         `json:"address"`
	Reason  string         `json:"reason"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// SeedOracle answers IsHoneypot from a static JSON file loaded at startup.
type SeedOracle struct {
	mu      sync.RWMutex
	records map[string]Record
}

// Load reads path's JSON array of Record into a SeedOracle.
func Load(path string) (*SeedOracle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	o := &SeedOracle{records: make(map[string]Record, len(records))}
	for _, r := range records {
		o.records[strings.ToLower(common.HexToAddress(r.Address).Hex())] = r
	}
	return o, nil
}

// IsHoneypot implements chain.HoneypotOracle.
func (o *SeedOracle) IsHoneypot(_ context.Context, addr common.Address, _ uint64) (bool, map[string]any, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, ok := o.records[strings.ToLower(addr.Hex())]
	if !ok {
		return false, nil, nil
	}
	meta := map[string]any{"reason": r.Reason}
	for k, v := range r.Extra {
		meta[k] = v
	}
	return true, meta, nil
}
