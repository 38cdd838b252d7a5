package detect

import (
	"context"
	"sort"
	"time"

	"tokenwatch/internal/config"
)

// HighActivityModule runs last among the evidentials: a token with enough
// genuine distinct-sender traffic is presumed to have real organic usage
// and is finalized as not spam regardless of earlier signals (spec.md
// §4.D module 14).
type HighActivityModule struct{}

func (HighActivityModule) Key() Key { return KeyHighActivity }

func (HighActivityModule) Scan(_ context.Context, in ScanInput) (Result, bool, error) {
	txs, err := in.Transformer.Transactions(in.Token.Address, in.Token.Standard)
	if err != nil {
		return Result{Detected: false}, false, err
	}

	senders := map[string]struct{}{}
	var timestamps []time.Time
	senderAt := map[string][]time.Time{}
	for _, tx := range txs {
		senders[tx.From] = struct{}{}
		timestamps = append(timestamps, tx.BlockTimestamp)
		senderAt[tx.From] = append(senderAt[tx.From], tx.BlockTimestamp)
	}

	multiplier := detectedWeightMultiplier(in.Context, in.Config.Weights)
	totalThreshold := float64(in.Config.HighActivityTotalSenders) * multiplier
	windowThreshold := float64(in.Config.HighActivityWindowSenders) * multiplier

	detected := float64(len(senders)) >= totalThreshold
	if !detected {
		detected = maxSendersInWindow(senderAt, in.Config.HighActivityWindow) >= int(windowThreshold)
	}
	if !detected {
		return Result{Detected: false}, false, nil
	}
	return Result{Detected: true, Metadata: map[string]any{
		"senders": len(senders), "multiplier": multiplier,
	}}, true, nil
}

// maxSendersInWindow returns the largest distinct-sender count observed
// in any sliding window of the given duration.
func maxSendersInWindow(senderAt map[string][]time.Time, window time.Duration) int {
	type event struct {
		t      time.Time
		sender string
	}
	var events []event
	for s, ts := range senderAt {
		for _, t := range ts {
			events = append(events, event{t: t, sender: s})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].t.Before(events[j].t) })

	counts := map[string]int{}
	distinct := 0
	max := 0
	lo := 0
	for hi := range events {
		s := events[hi].sender
		if counts[s] == 0 {
			distinct++
		}
		counts[s]++
		for events[hi].t.Sub(events[lo].t) > window {
			ls := events[lo].sender
			counts[ls]--
			if counts[ls] == 0 {
				distinct--
			}
			lo++
		}
		if distinct > max {
			max = distinct
		}
	}
	return max
}

// detectedWeightMultiplier is the product of configured weights for every
// other module currently detected in ctx, tightening HighActivity's bar
// when other spam signals already fired (spec.md §4.D module 14, §6).
func detectedWeightMultiplier(ctx Context, w config.ModuleWeights) float64 {
	weightOf := map[Key]float64{
		KeyTooMuchAirdropActivity: w.TooMuchAirdropActivity,
		KeyLowActivityAfterAirdrop: w.LowActivityAfterAirdrop,
		KeyErc721MultipleOwners:    w.MultipleOwners,
		KeyErc721NonUniqueTokens:   w.NonUniqueTokens,
		KeyErc721FalseTotalSupply:  w.FalseTotalSupply,
		KeySilentMint:              w.SilentMint,
		KeySleepMint:               w.SleepMint,
		KeyTooManyTokenCreations:   w.TooManyCreations,
		KeyPhishingMetadata:        w.PhishingMetadata,
		KeyTooManyHoneyPotOwners:   w.TooManyHoneyPotOwners,
		KeyHoneypotShareDominance:  w.HoneypotShareDominance,
		KeyTokenImpersonation:      w.TokenImpersonation,
	}
	multiplier := 1.0
	for key, weight := range weightOf {
		if r, ok := ctx.Get(key); ok && r.Detected {
			multiplier *= weight
		}
	}
	return multiplier
}

func (HighActivityModule) SimplifyMetadata(r Result) any {
	if !r.Detected {
		return nil
	}
	return r.Metadata
}
