package detect

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"tokenwatch/internal/memoizer"
)

// Erc721FalseTotalSupplyModule flags a collection that reports fewer
// tokens than it has actually minted, tolerating ingestion gaps by only
// flagging under-declaration (spec.md §4.D module 7, ERC-721 only).
type Erc721FalseTotalSupplyModule struct{}

func (Erc721FalseTotalSupplyModule) Key() Key { return KeyErc721FalseTotalSupply }

func (Erc721FalseTotalSupplyModule) Scan(ctx context.Context, in ScanInput) (Result, bool, error) {
	if in.Token.Standard != "ERC721" {
		return Result{Detected: false}, false, nil
	}

	probe, err := memoizer.Memo(in.Memoizer, in.Token.Address, "totalSupply", nil,
		func() (totalSupplyProbe, error) {
			v, ok, err := in.Provider.TotalSupply(ctx, common.HexToAddress(in.Token.Address), in.BlockNumber)
			if err != nil {
				return totalSupplyProbe{}, err
			}
			if !ok {
				return totalSupplyProbe{implemented: false}, nil
			}
			return totalSupplyProbe{implemented: true, value: v.Int64()}, nil
		})
	if err != nil || !probe.implemented {
		return Result{Detected: false}, false, nil
	}

	events, err := in.Store.Erc721Transfer(in.Token.Address)
	if err != nil {
		return Result{Detected: false}, false, err
	}
	// currentOwner tracks each tokenID's latest "to" in event order, so
	// resale/concentration churn doesn't inflate or deflate the count the
	// way tallying every distinct historical recipient would.
	currentOwner := map[string]string{}
	for _, e := range events {
		currentOwner[e.TokenID] = e.To
	}
	actualSupply := 0
	for _, owner := range currentOwner {
		if !IsBurnAddress(owner) {
			actualSupply++
		}
	}

	actual := int64(actualSupply)
	if actual <= probe.value {
		return Result{Detected: false}, false, nil
	}
	return Result{Detected: true, Metadata: map[string]any{
		"declaredTotalSupply": probe.value, "actualTotalSupply": actual,
	}}, false, nil
}

type totalSupplyProbe struct {
	implemented bool
	value       int64
}

func (Erc721FalseTotalSupplyModule) SimplifyMetadata(r Result) any {
	if !r.Detected {
		return nil
	}
	return r.Metadata
}
