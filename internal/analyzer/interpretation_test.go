package analyzer

import (
	"testing"

	"tokenwatch/internal/config"
	"tokenwatch/internal/detect"
)

func TestInterpretSpamViaAirdropAndMultipleOwners(t *testing.T) {
	ctx := detect.Context{
		detect.KeyAirdrop:              {Detected: true, Metadata: detect.AirdropMetadata{Receivers: []string{"a", "b"}}},
		detect.KeyErc721MultipleOwners: {Detected: true},
	}
	interp := Interpret(ctx, &config.Detectors{})
	if !interp.IsSpam {
		t.Fatalf("expected isSpam=true")
	}
	if interp.IsPhishing {
		t.Fatalf("expected isPhishing=false")
	}
}

func TestInterpretHighActivityForcesNotSpam(t *testing.T) {
	ctx := detect.Context{
		detect.KeyAirdrop:              {Detected: true, Metadata: detect.AirdropMetadata{}},
		detect.KeyErc721MultipleOwners: {Detected: true},
		detect.KeyHighActivity:         {Detected: true, Metadata: map[string]any{"senders": 50}},
	}
	interp := Interpret(ctx, &config.Detectors{})
	if interp.IsSpam {
		t.Fatalf("expected HighActivity to force isSpam=false")
	}
	if !interp.IsFinalized {
		t.Fatalf("expected HighActivity detection to finalize")
	}
}

func TestInterpretConfidenceTokenImpersonationBase(t *testing.T) {
	ctx := detect.Context{
		detect.KeyTokenImpersonation: {Detected: true},
	}
	interp := Interpret(ctx, &config.Detectors{})
	if interp.Confidence != 0.75 {
		t.Fatalf("confidence = %v, want 0.75", interp.Confidence)
	}
}

func TestCompareDetectsSpamFlip(t *testing.T) {
	prev := Analysis{detect.KeyAirdrop: {Detected: true}}
	curr := Analysis{detect.KeyAirdrop: {Detected: true}, detect.KeyPhishingMetadata: {Detected: true}}
	prevInterp := Interpretation{IsSpam: false, Confidence: 0.6}
	currInterp := Interpretation{IsSpam: true, Confidence: 0.75}

	isUpdated, isChanged := Compare(curr, prev, currInterp, prevInterp)
	if !isUpdated {
		t.Fatalf("expected isUpdated=true")
	}
	if !isChanged {
		t.Fatalf("expected isChanged=true on spam flip")
	}
}
