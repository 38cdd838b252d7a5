package detect

import "context"

// SilentMintModule flags an ERC-20 account with a negative net balance,
// which can only arise from tokens minted without a corresponding
// Transfer event (spec.md §4.D module 8, ERC-20 only).
type SilentMintModule struct{}

func (SilentMintModule) Key() Key { return KeySilentMint }

func (SilentMintModule) Scan(_ context.Context, in ScanInput) (Result, bool, error) {
	if in.Token.Standard != "ERC20" {
		return Result{Detected: false}, false, nil
	}
	balances, err := in.Transformer.BalanceByAccount(in.Token.Address, in.Token.Standard)
	if err != nil {
		return Result{Detected: false}, false, err
	}

	var negative []string
	for addr, bal := range balances {
		if addr == in.Token.DeployerAddress || addr == in.Token.Address {
			continue
		}
		if bal.Sign() < 0 {
			negative = append(negative, addr)
		}
	}
	if len(negative) == 0 {
		return Result{Detected: false}, false, nil
	}
	return Result{Detected: true, Metadata: map[string]any{"accounts": negative}}, false, nil
}

func (SilentMintModule) SimplifyMetadata(r Result) any {
	if !r.Detected {
		return nil
	}
	return r.Metadata
}
