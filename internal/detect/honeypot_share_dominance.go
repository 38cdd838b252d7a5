package detect

import (
	"context"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"tokenwatch/internal/memoizer"
)

// honeypotProbe shares the "honeypot" memoizer key with
// TooManyHoneyPotOwnersModule so the two modules' overlapping candidate
// sets reuse the same oracle calls within a scan.
func honeypotProbe(ctx context.Context, in ScanInput, addr string) bool {
	if in.Honeypot == nil {
		return false
	}
	isHoneypot, err := memoizer.Memo(in.Memoizer, in.Token.Address, "honeypot", []memoizer.Arg{addr},
		func() (bool, error) {
			is, _, err := in.Honeypot.IsHoneypot(ctx, common.HexToAddress(addr), in.BlockNumber)
			return is, err
		})
	return err == nil && isHoneypot
}

// HoneypotShareDominanceModule flags a distribution where honeypot
// contracts among the airdrop's own receivers hold a disproportionate
// share of the supply (spec.md §4.D module 13).
type HoneypotShareDominanceModule struct{}

func (HoneypotShareDominanceModule) Key() Key { return KeyHoneypotShareDominance }

func (m HoneypotShareDominanceModule) Scan(ctx context.Context, in ScanInput) (Result, bool, error) {
	airdrop, ok := in.Context.Get(KeyAirdrop)
	if !ok || !airdrop.Detected {
		return Result{Detected: false}, false, nil
	}
	md, ok := airdrop.Metadata.(AirdropMetadata)
	if !ok {
		return Result{Detected: false}, false, nil
	}

	balances, err := in.Transformer.BalanceByAccount(in.Token.Address, in.Token.Standard)
	if err != nil {
		return Result{Detected: false}, false, err
	}
	for _, bal := range balances {
		if bal.Sign() < 0 {
			// negative net balances are an ingestion artifact; refuse to judge.
			return Result{Detected: false}, false, nil
		}
	}

	senderSet := map[string]struct{}{}
	for _, s := range md.Senders {
		senderSet[strings.ToLower(s)] = struct{}{}
	}

	totalBalance := big.NewInt(0)
	var candidates []string
	for addr, bal := range balances {
		if strings.EqualFold(addr, in.Token.DeployerAddress) || strings.EqualFold(addr, in.Token.Address) {
			continue
		}
		totalBalance.Add(totalBalance, bal)
	}
	for _, r := range md.Receivers {
		if _, isSender := senderSet[strings.ToLower(r)]; isSender {
			continue
		}
		if IsBurnAddress(r) {
			continue
		}
		candidates = append(candidates, r)
	}
	if totalBalance.Sign() <= 0 || len(candidates) == 0 {
		return Result{Detected: false}, false, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return balanceOf(balances, candidates[i]).Cmp(balanceOf(balances, candidates[j])) > 0
	})
	if len(candidates) > 100 {
		candidates = candidates[:100]
	}

	honeypotBalance := big.NewInt(0)
	for _, addr := range candidates {
		isHoneypot := honeypotProbe(ctx, in, addr)
		if isHoneypot {
			honeypotBalance.Add(honeypotBalance, balanceOf(balances, addr))
		}
	}

	share := new(big.Rat).SetFrac(honeypotBalance, totalBalance)
	threshold := new(big.Rat).SetFloat64(in.Config.HoneypotShareThreshold)
	if threshold == nil || share.Cmp(threshold) <= 0 {
		return Result{Detected: false}, false, nil
	}
	shareFloat, _ := share.Float64()
	return Result{Detected: true, Metadata: map[string]any{"share": shareFloat}}, false, nil
}

func (HoneypotShareDominanceModule) SimplifyMetadata(r Result) any {
	if !r.Detected {
		return nil
	}
	return r.Metadata
}
