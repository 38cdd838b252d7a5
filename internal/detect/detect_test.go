package detect

import (
	"testing"
	"time"

	"tokenwatch/internal/config"
)

func TestNormalizeNameSymbol(t *testing.T) {
	got := normalizeNameSymbol("  Visit Site!! ", "CC.com")
	want := "visit site cccom"
	if got != want {
		t.Fatalf("normalizeNameSymbol: got %q want %q", got, want)
	}
}

func TestIsBurnAddress(t *testing.T) {
	if !IsBurnAddress("0x000000000000000000000000000000000000dEaD") {
		t.Fatalf("expected dead address to be recognized as a burn address")
	}
	if IsBurnAddress("0x00000000000000000000000000000000000001") {
		t.Fatalf("did not expect an ordinary address to be a burn address")
	}
}

func TestMaxReceiversInWindow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	transfers := []TransferRecord{
		{To: "a", Timestamp: base},
		{To: "b", Timestamp: base.Add(time.Hour)},
		{To: "c", Timestamp: base.Add(10 * 24 * time.Hour)}, // outside the window
	}
	got := maxReceiversInWindow(transfers, 5*24*time.Hour)
	if got != 2 {
		t.Fatalf("maxReceiversInWindow = %d, want 2", got)
	}
}

func TestMaxReceiversInOneTx(t *testing.T) {
	transfers := []TransferRecord{
		{TxHash: "t1", To: "a"},
		{TxHash: "t1", To: "b"},
		{TxHash: "t2", To: "c"},
	}
	if got := maxReceiversInOneTx(transfers); got != 2 {
		t.Fatalf("maxReceiversInOneTx = %d, want 2", got)
	}
}

func TestExtractURL(t *testing.T) {
	url, host, found := extractURL("visit example[.]com now")
	if !found {
		t.Fatalf("expected a URL to be found")
	}
	if host != "example.com" {
		t.Fatalf("host = %q, want example.com", host)
	}
	_ = url
}

func TestDetectedWeightMultiplier(t *testing.T) {
	w := config.ModuleWeights{TokenImpersonation: 5, SleepMint: 1.5}
	ctx := Context{
		KeyTokenImpersonation: {Detected: true},
		KeySleepMint:          {Detected: false},
	}
	got := detectedWeightMultiplier(ctx, w)
	if got != 5 {
		t.Fatalf("detectedWeightMultiplier = %v, want 5", got)
	}
}
