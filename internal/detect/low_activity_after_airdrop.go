package detect

import "context"

// LowActivityAfterAirdropModule flags a large airdrop whose receivers show
// almost no subsequent activity, a sign the receivers never controlled or
// never noticed the tokens (spec.md §4.D module 4).
type LowActivityAfterAirdropModule struct{}

func (LowActivityAfterAirdropModule) Key() Key { return KeyLowActivityAfterAirdrop }

func (LowActivityAfterAirdropModule) Scan(_ context.Context, in ScanInput) (Result, bool, error) {
	airdrop, ok := in.Context.Get(KeyAirdrop)
	if !ok || !airdrop.Detected {
		return Result{Detected: false}, false, nil
	}
	md, ok := airdrop.Metadata.(AirdropMetadata)
	if !ok || len(md.Receivers) < in.Config.MinAirdropReceivers {
		return Result{Detected: false}, false, nil
	}

	cutoff := md.EndTime.Add(in.Config.DelayAfterAirdrop)
	if in.Timestamp.Before(cutoff) {
		// too early to judge post-airdrop activity.
		return Result{Detected: false}, false, nil
	}

	records, err := transferRecords(in)
	if err != nil {
		return Result{Detected: false}, false, err
	}
	receiverSet := make(map[string]struct{}, len(md.Receivers))
	for _, r := range md.Receivers {
		receiverSet[r] = struct{}{}
	}

	activeAfter := map[string]struct{}{}
	for _, rec := range records {
		if rec.Timestamp.Before(cutoff) {
			continue
		}
		if _, isReceiver := receiverSet[rec.From]; isReceiver {
			activeAfter[rec.From] = struct{}{}
		}
	}

	threshold := float64(len(md.Receivers)) * in.Config.MinActiveReceiversRate
	detected := float64(len(activeAfter)) < threshold
	if !detected {
		return Result{Detected: false}, false, nil
	}
	return Result{Detected: true, Metadata: map[string]any{
		"activeReceivers": len(activeAfter), "totalReceivers": len(md.Receivers),
	}}, false, nil
}

func (LowActivityAfterAirdropModule) SimplifyMetadata(r Result) any {
	if !r.Detected {
		return nil
	}
	return r.Metadata
}
