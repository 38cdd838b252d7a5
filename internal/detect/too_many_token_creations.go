package detect

import (
	"context"
	"sort"
)

// TooManyTokenCreationsModule flags a deployer that mints a burst of
// new token contracts inside a sliding window, a common footprint of
// spam-token factories (spec.md §4.D module 10).
type TooManyTokenCreationsModule struct{}

func (TooManyTokenCreationsModule) Key() Key { return KeyTooManyTokenCreations }

func (TooManyTokenCreationsModule) Scan(_ context.Context, in ScanInput) (Result, bool, error) {
	tokens, err := in.Store.TokensByDeployer(in.Token.DeployerAddress)
	if err != nil {
		return Result{Detected: false}, false, err
	}
	if len(tokens) <= in.Config.TokenCreationsThreshold {
		return Result{Detected: false}, false, nil
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i].DeploymentTime.Before(tokens[j].DeploymentTime) })

	maxInWindow := 0
	lo := 0
	for hi := range tokens {
		for tokens[hi].DeploymentTime.Sub(tokens[lo].DeploymentTime) > in.Config.CreationWindow {
			lo++
		}
		if count := hi - lo + 1; count > maxInWindow {
			maxInWindow = count
		}
	}

	if maxInWindow <= in.Config.TokenCreationsThreshold {
		return Result{Detected: false}, false, nil
	}
	return Result{Detected: true, Metadata: map[string]any{
		"deployer": in.Token.DeployerAddress, "tokensInWindow": maxInWindow,
	}}, false, nil
}

func (TooManyTokenCreationsModule) SimplifyMetadata(r Result) any {
	if !r.Detected {
		return nil
	}
	return r.Metadata
}
