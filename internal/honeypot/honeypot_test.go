package honeypot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func writeJSON(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "honeypots.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write honeypots.json: %v", err)
	}
	return path
}

func TestIsHoneypotMatchesSeededAddressCaseInsensitively(t *testing.T) {
	path := writeJSON(t, `[
		{"address": "0x000000000000000000000000000000DeadBeef", "reason": "sell reverts"}
	]`)
	o, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	is, meta, err := o.IsHoneypot(context.Background(), common.HexToAddress("0x000000000000000000000000000000deadbeef"), 0)
	if err != nil {
		t.Fatalf("is honeypot: %v", err)
	}
	if !is {
		t.Fatal("expected seeded address to be flagged a honeypot")
	}
	if meta["reason"] != "sell reverts" {
		t.Errorf("meta[reason] = %v, want %q", meta["reason"], "sell reverts")
	}
}

func TestIsHoneypotFalseForUnseenAddress(t *testing.T) {
	path := writeJSON(t, `[]`)
	o, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	is, meta, err := o.IsHoneypot(context.Background(), common.HexToAddress("0x1111111111111111111111111111111111111a"), 0)
	if err != nil {
		t.Fatalf("is honeypot: %v", err)
	}
	if is || meta != nil {
		t.Fatalf("is=%v meta=%v, want false/nil for an unseeded address", is, meta)
	}
}
