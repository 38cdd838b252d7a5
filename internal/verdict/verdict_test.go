package verdict

import (
	"testing"
	"time"

	"tokenwatch/internal/analyzer"
	"tokenwatch/internal/detect"
	"tokenwatch/internal/orchestrator"
	"tokenwatch/internal/store"
)

func TestFromReleasedEmitsSpamNew(t *testing.T) {
	r := orchestrator.Released{
		Token: store.TokenContract{Address: "0xaaaa", DeploymentTime: time.Now()},
		Analysis: analyzer.Analysis{
			detect.KeyAirdrop:              {Detected: true},
			detect.KeyErc721MultipleOwners: {Detected: true},
		},
		Interp:     analyzer.Interpretation{IsSpam: true, Confidence: 0.75},
		PrevInterp: analyzer.Interpretation{IsSpam: false},
	}
	events := FromReleased(r)
	if len(events) != 1 || events[0].Kind != KindSpamNew {
		t.Fatalf("expected a single spam-new event, got %+v", events)
	}
	if events[0].Confidence != 0.75 {
		t.Fatalf("confidence = %v, want 0.75", events[0].Confidence)
	}
}

func TestFromReleasedEmitsSpamRemove(t *testing.T) {
	r := orchestrator.Released{
		Token:      store.TokenContract{Address: "0xbbbb"},
		Interp:     analyzer.Interpretation{IsSpam: false},
		PrevInterp: analyzer.Interpretation{IsSpam: true},
	}
	events := FromReleased(r)
	if len(events) != 1 || events[0].Kind != KindSpamRemove {
		t.Fatalf("expected a single spam-remove event, got %+v", events)
	}
}

func TestFromReleasedEmitsSpamUpdateWhenIndicatorsChangeButStaysSpam(t *testing.T) {
	r := orchestrator.Released{
		Token: store.TokenContract{Address: "0xeeee"},
		Prev: analyzer.Analysis{
			detect.KeyAirdrop: {Detected: true},
		},
		Analysis: analyzer.Analysis{
			detect.KeyAirdrop:              {Detected: true},
			detect.KeyErc721MultipleOwners: {Detected: true},
		},
		Interp:     analyzer.Interpretation{IsSpam: true, Confidence: 0.9},
		PrevInterp: analyzer.Interpretation{IsSpam: true, Confidence: 0.6},
	}
	events := FromReleased(r)
	if len(events) != 1 || events[0].Kind != KindSpamUpdate {
		t.Fatalf("expected a single spam-update event, got %+v", events)
	}
	if len(events[0].Added) != 1 || events[0].Added[0] != detect.KeyErc721MultipleOwners {
		t.Fatalf("expected erc721-multiple-owners to be the added indicator, got %+v", events[0].Added)
	}
}

func TestFromReleasedEmitsPhishingAndFinalized(t *testing.T) {
	r := orchestrator.Released{
		Token: store.TokenContract{Address: "0xcccc"},
		Analysis: analyzer.Analysis{
			detect.KeyPhishingMetadata: {Detected: true, Metadata: map[string]any{"url": "visit-site.cc", "host": "visit-site.cc"}},
		},
		Interp: analyzer.Interpretation{IsPhishing: true, IsFinalized: true},
	}
	events := FromReleased(r)
	if len(events) != 2 {
		t.Fatalf("expected phishing-new + finalized, got %+v", events)
	}
	if events[0].Kind != KindPhishingNew || len(events[0].URLs) != 1 || events[0].URLs[0] != "visit-site.cc" {
		t.Fatalf("unexpected phishing event: %+v", events[0])
	}
	if events[1].Kind != KindFinalized {
		t.Fatalf("expected second event to be finalized, got %+v", events[1])
	}
}

func TestFromReleasedNoTransitionsEmitsNothing(t *testing.T) {
	r := orchestrator.Released{
		Token:      store.TokenContract{Address: "0xdddd"},
		Interp:     analyzer.Interpretation{},
		PrevInterp: analyzer.Interpretation{},
	}
	if events := FromReleased(r); len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
}
