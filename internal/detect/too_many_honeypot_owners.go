package detect

import (
	"context"
	"math/big"
	"sort"
	"sync"
)

// TooManyHoneyPotOwnersModule flags a distribution whose top balance
// holders are disproportionately honeypot contracts, which happens when
// an operator seeds balances it controls to fake organic holding
// (spec.md §4.D module 12).
type TooManyHoneyPotOwnersModule struct{}

func (TooManyHoneyPotOwnersModule) Key() Key { return KeyTooManyHoneyPotOwners }

func (m TooManyHoneyPotOwnersModule) Scan(ctx context.Context, in ScanInput) (Result, bool, error) {
	airdrop, ok := in.Context.Get(KeyAirdrop)
	if !ok || !airdrop.Detected {
		return Result{Detected: false}, false, nil
	}
	md, ok := airdrop.Metadata.(AirdropMetadata)
	if !ok || len(md.Receivers) == 0 {
		return Result{Detected: false}, false, nil
	}

	balances, err := in.Transformer.BalanceByAccount(in.Token.Address, in.Token.Standard)
	if err != nil {
		return Result{Detected: false}, false, err
	}

	receivers := make([]string, len(md.Receivers))
	copy(receivers, md.Receivers)
	sort.Slice(receivers, func(i, j int) bool {
		return balanceOf(balances, receivers[i]).Cmp(balanceOf(balances, receivers[j])) > 0
	})
	if len(receivers) > in.Config.MaxHoneypotAccounts {
		receivers = receivers[:in.Config.MaxHoneypotAccounts]
	}

	honeypotCount := m.countHoneypots(ctx, in, receivers)
	ratio := float64(honeypotCount) / float64(len(receivers))

	detected := honeypotCount >= in.Config.MinHoneypotAccounts || ratio >= in.Config.MinHoneypotRatio
	if !detected {
		return Result{Detected: false}, false, nil
	}
	return Result{Detected: true, Metadata: map[string]any{
		"honeypotAccounts": honeypotCount, "sampled": len(receivers), "ratio": ratio,
	}}, false, nil
}

func (TooManyHoneyPotOwnersModule) countHoneypots(ctx context.Context, in ScanInput, addrs []string) int {
	maxInFlight := in.Config.FetchConcurrency
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	sem := make(chan struct{}, maxInFlight)
	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0

	for _, addr := range addrs {
		addr := addr
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if !honeypotProbe(ctx, in, addr) {
				return
			}
			mu.Lock()
			count++
			mu.Unlock()
		}()
	}
	wg.Wait()
	return count
}

func balanceOf(balances map[string]*big.Int, addr string) *big.Int {
	if b, ok := balances[addr]; ok {
		return b
	}
	return big.NewInt(0)
}

func (TooManyHoneyPotOwnersModule) SimplifyMetadata(r Result) any {
	if !r.Detected {
		return nil
	}
	return r.Metadata
}
