package analyzer

import (
	"tokenwatch/internal/config"
	"tokenwatch/internal/detect"
)

// Interpretation is the public verdict computed over a scan's Context,
// per spec.md §4.D's "Public interpretation over the context" rules.
type Interpretation struct {
	IsPhishing  bool
	IsSpam      bool
	IsFinalized bool
	Confidence  float64
}

// spamIndicators are the modules whose detection, combined with Airdrop,
// constitutes spam (spec.md §4.D, isSpam formula).
var spamIndicators = []detect.Key{
	detect.KeyErc721MultipleOwners,
	detect.KeyErc721FalseTotalSupply,
	detect.KeyErc721NonUniqueTokens,
	detect.KeyTooMuchAirdropActivity,
	detect.KeyTooManyTokenCreations,
	detect.KeyTooManyHoneyPotOwners,
	detect.KeyHoneypotShareDominance,
	detect.KeyPhishingMetadata,
	detect.KeySleepMint,
	detect.KeyLowActivityAfterAirdrop,
}

// Interpret computes the public verdict over ctx per spec.md §4.D/§4.E.
func Interpret(ctx detect.Context, cfg *config.Detectors) Interpretation {
	isPhishing := detected(ctx, detect.KeyPhishingMetadata)
	tokenImpersonation := detected(ctx, detect.KeyTokenImpersonation)
	airdrop := detected(ctx, detect.KeyAirdrop)

	isSpam := isPhishing || tokenImpersonation
	if airdrop {
		for _, k := range spamIndicators {
			if detected(ctx, k) {
				isSpam = true
				break
			}
		}
	}
	highActivity := detected(ctx, detect.KeyHighActivity)
	if highActivity {
		isSpam = false
	}

	isFinalized := detected(ctx, detect.KeyObservationTime) || highActivity ||
		isPhishing || detected(ctx, detect.KeyTooMuchAirdropActivity)

	confidence := computeConfidence(ctx, tokenImpersonation, highActivity)

	return Interpretation{
		IsPhishing: isPhishing, IsSpam: isSpam, IsFinalized: isFinalized, Confidence: confidence,
	}
}

func detected(ctx detect.Context, k detect.Key) bool {
	r, ok := ctx.Get(k)
	return ok && r.Detected
}

func computeConfidence(ctx detect.Context, tokenImpersonation, highActivity bool) float64 {
	base := 0.6
	if tokenImpersonation {
		base = 0.75
	}

	indicatorCount := 0
	for _, k := range detect.Order {
		if k == detect.KeySilentMint || k == detect.KeyAirdrop {
			continue
		}
		if detected(ctx, k) {
			indicatorCount++
		}
	}
	switch {
	case indicatorCount >= 3:
		base += 0.35
	case indicatorCount == 2:
		base += 0.15
	}

	if airdrop, ok := ctx.Get(detect.KeyAirdrop); ok && airdrop.Detected {
		if md, ok := airdrop.Metadata.(detect.AirdropMetadata); ok {
			n := len(md.Receivers)
			switch {
			case n >= 1000:
				base *= 1.2
			case n >= 100:
				base *= 1.1
			}
		}
	}

	if phishing, ok := ctx.Get(detect.KeyPhishingMetadata); ok && phishing.Detected {
		if md, ok := phishing.Metadata.(map[string]any); ok {
			if text, ok := md["text"].(string); ok && len(text) > 2000 {
				base *= 0.8
			}
		}
	}

	if highActivity {
		if ha, ok := ctx.Get(detect.KeyHighActivity); ok && ha.Detected {
			if md, ok := ha.Metadata.(map[string]any); ok {
				if senders, ok := md["senders"].(int); ok && senders >= 300 {
					base *= 0.8
				}
			}
		}
	}

	if base > 1 {
		base = 1
	}
	return base
}

// Compare reports how curr differs from prev, per spec.md §4.D's
// "compare(curr, prev)" rule: isUpdated on any detected-flag or
// confidence change, isChanged when the spam flag flipped.
func Compare(curr, prev Analysis, currInterp, prevInterp Interpretation) (isUpdated, isChanged bool) {
	if currInterp.Confidence != prevInterp.Confidence {
		isUpdated = true
	}
	for k, c := range curr {
		p, ok := prev[k]
		if !ok || p.Detected != c.Detected {
			isUpdated = true
			break
		}
	}
	if !isUpdated {
		for k := range prev {
			if _, ok := curr[k]; !ok {
				isUpdated = true
				break
			}
		}
	}
	isChanged = currInterp.IsSpam != prevInterp.IsSpam
	return isUpdated, isChanged
}
