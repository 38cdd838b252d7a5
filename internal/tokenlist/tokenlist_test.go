package tokenlist

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeJSON(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadKnownTokens(t *testing.T) {
	path := writeJSON(t, "tokens.json", `[
		{"name": "Wrapped Ether", "symbol": "WETH", "deployments": ["0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"]}
	]`)
	l, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	records, err := l.KnownTokens(context.Background())
	if err != nil {
		t.Fatalf("known tokens: %v", err)
	}
	if len(records) != 1 || records[0].Symbol != "WETH" {
		t.Fatalf("records = %+v, want one WETH record", records)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error loading a nonexistent file")
	}
}

func TestLeaderboardCategorizesDomains(t *testing.T) {
	path := writeJSON(t, "leaders.json", `[
		{"domain": "opensea.io", "category": "marketplace"},
		{"domain": "bit.ly", "category": "shortener"}
	]`)
	lb, err := LoadLeaderboard(path)
	if err != nil {
		t.Fatalf("load leaderboard: %v", err)
	}
	if !lb.IsMarketplace("opensea.io") {
		t.Error("expected opensea.io to be a marketplace")
	}
	if !lb.IsShortener("bit.ly") {
		t.Error("expected bit.ly to be a shortener")
	}
	if lb.IsMarketplace("bit.ly") || lb.IsShortener("opensea.io") {
		t.Error("categories must not cross-match")
	}
	if lb.Category("unknown.example") != "" {
		t.Error("unknown domain should have an empty category")
	}
}
