// Package tokenlist provides a JSON-file-backed implementation of
// chain.TokenList, reading the "tokens.json" side-input of well-known
// tokens and their deployments (spec.md §6).
package tokenlist

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"tokenwatch/internal/chain"
)

// SeedList answers KnownTokens from a static JSON file loaded at startup.
type SeedList struct {
	mu      sync.RWMutex
	records []chain.TokenRecord
}

// Load reads path's JSON array of chain.TokenRecord.
func Load(path string) (*SeedList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []chain.TokenRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return &SeedList{records: records}, nil
}

// KnownTokens implements chain.TokenList.
func (l *SeedList) KnownTokens(_ context.Context) ([]chain.TokenRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]chain.TokenRecord, len(l.records))
	copy(out, l.records)
	return out, nil
}

// LeaderboardEntry is one row of the "leaders.json" naming-authority
// leaderboard side-input (spec.md §6), consulted by PhishingMetadata when
// distinguishing well-known marketplace domains from short-URL hosts.
type LeaderboardEntry struct {
	Domain   string `json:"domain"`
	Category string `json:"category"` // e.g. "marketplace", "shortener"
}

// Leaderboard answers host-category lookups from leaders.json.
type Leaderboard struct {
	mu       sync.RWMutex
	byDomain map[string]string
}

// LoadLeaderboard reads path's JSON array of LeaderboardEntry.
func LoadLeaderboard(path string) (*Leaderboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	lb := &Leaderboard{byDomain: make(map[string]string, len(entries))}
	for _, e := range entries {
		lb.byDomain[e.Domain] = e.Category
	}
	return lb, nil
}

// Category returns the known category for domain, or "" if unknown.
func (l *Leaderboard) Category(domain string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.byDomain[domain]
}

// IsShortener reports whether domain is a known short-URL host.
func (l *Leaderboard) IsShortener(domain string) bool {
	return l.Category(domain) == "shortener"
}

// IsMarketplace reports whether domain is a well-known marketplace host.
func (l *Leaderboard) IsMarketplace(domain string) bool {
	return l.Category(domain) == "marketplace"
}
