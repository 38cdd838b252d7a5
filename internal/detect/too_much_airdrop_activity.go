package detect

import "context"

// TooMuchAirdropActivityModule flags an airdrop (or impersonating token)
// whose distribution spanned too long and reached too many receivers,
// per spec.md §4.D module 3.
type TooMuchAirdropActivityModule struct{}

func (TooMuchAirdropActivityModule) Key() Key { return KeyTooMuchAirdropActivity }

func (TooMuchAirdropActivityModule) Scan(_ context.Context, in ScanInput) (Result, bool, error) {
	airdrop, hasAirdrop := in.Context.Get(KeyAirdrop)
	impersonation, hasImpersonation := in.Context.Get(KeyTokenImpersonation)
	if !(hasAirdrop && airdrop.Detected) && !(hasImpersonation && impersonation.Detected) {
		return Result{Detected: false}, false, nil
	}

	md, ok := airdrop.Metadata.(AirdropMetadata)
	if !ok {
		return Result{Detected: false}, false, nil
	}

	duration := md.EndTime.Sub(md.StartTime)
	detected := duration > in.Config.AirdropDurationThreshold && len(md.Receivers) > in.Config.ReceiversThreshold
	if !detected {
		return Result{Detected: false}, false, nil
	}
	return Result{Detected: true, Metadata: map[string]any{
		"duration": duration, "receivers": len(md.Receivers),
	}}, false, nil
}

func (TooMuchAirdropActivityModule) SimplifyMetadata(r Result) any {
	if !r.Detected {
		return nil
	}
	return r.Metadata
}
