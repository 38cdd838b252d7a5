package detect

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"tokenwatch/internal/memoizer"
)

// SleepMintModule flags transfers moved by a relayer that was never
// approved by the apparent sender ("from"), a pattern used to plant
// balances that later get silently drained (spec.md §4.D module 9).
type SleepMintModule struct{}

func (SleepMintModule) Key() Key { return KeySleepMint }

func (m SleepMintModule) Scan(ctx context.Context, in ScanInput) (Result, bool, error) {
	airdrop, ok := in.Context.Get(KeyAirdrop)
	if !ok || !airdrop.Detected {
		return Result{Detected: false}, false, nil
	}
	md, ok := airdrop.Metadata.(AirdropMetadata)
	if !ok {
		return Result{Detected: false}, false, nil
	}
	txSet := make(map[string]struct{}, len(md.TxHashes))
	for _, h := range md.TxHashes {
		txSet[h] = struct{}{}
	}

	directApprovals, err := m.directApprovalMap(in)
	if err != nil {
		return Result{Detected: false}, false, err
	}

	records, err := transferRecords(in)
	if err != nil {
		return Result{Detected: false}, false, err
	}

	type txOwnerKey struct{ tx, owner string }
	receiversByTxOwner := map[txOwnerKey]map[string]struct{}{}

	for _, r := range records {
		if _, inAirdrop := txSet[r.TxHash]; !inAirdrop {
			continue
		}
		if r.From == zeroAddressHex {
			continue
		}
		if strings.EqualFold(r.TxFrom, r.From) || strings.EqualFold(r.TxFrom, r.To) {
			continue
		}
		if strings.EqualFold(r.From, in.Token.Address) || strings.EqualFold(r.From, in.Token.DeployerAddress) {
			continue
		}
		if IsBurnAddress(r.To) || strings.EqualFold(r.To, in.Token.DeployerAddress) {
			continue
		}
		if _, approved := directApprovals[strings.ToLower(r.From)][strings.ToLower(r.TxFrom)]; approved {
			continue
		}

		k := txOwnerKey{tx: r.TxHash, owner: r.From}
		set, ok := receiversByTxOwner[k]
		if !ok {
			set = map[string]struct{}{}
			receiversByTxOwner[k] = set
		}
		set[r.To] = struct{}{}
	}

	distinctReceivers := map[string]struct{}{}
	for k, receivers := range receiversByTxOwner {
		if in.Token.Standard == "ERC20" {
			if len(receivers) <= in.Config.SleepMintReceiversThresh {
				continue
			}
			if !m.erc20Confirm(ctx, in, k.tx, k.owner, records) {
				continue
			}
		}
		for r := range receivers {
			distinctReceivers[r] = struct{}{}
		}
	}

	if len(distinctReceivers) <= in.Config.SleepMintReceiversThresh {
		return Result{Detected: false}, false, nil
	}
	return Result{Detected: true, Metadata: map[string]any{"receivers": len(distinctReceivers)}}, false, nil
}

const zeroAddressHex = "0x0000000000000000000000000000000000000000"

// erc20Confirm applies the ERC-20-specific exclusions: zero allowance,
// not a Disperse-style pre-funding flow, and not a liquidity pair.
func (m SleepMintModule) erc20Confirm(ctx context.Context, in ScanInput, txHash, owner string, records []TransferRecord) bool {
	var sender string
	for _, r := range records {
		if r.TxHash == txHash {
			sender = r.TxFrom
			break
		}
	}
	if sender == "" {
		return false
	}

	allowance, err := memoizer.Memo(in.Memoizer, in.Token.Address, "allowance",
		[]memoizer.Arg{owner, sender}, func() (*big.Int, error) {
			return in.Provider.Allowance(ctx, common.HexToAddress(in.Token.Address),
				common.HexToAddress(owner), common.HexToAddress(sender), in.BlockNumber)
		})
	if err != nil || allowance == nil || allowance.Sign() != 0 {
		return false
	}

	if senderFundedOwnerFirst(records, sender, owner) {
		return false
	}

	pair, err := memoizer.Memo(in.Memoizer, in.Token.Address, "pairTokens",
		[]memoizer.Arg{sender}, func() (pairProbe, error) {
			t0, t1, isPair, err := in.Provider.PairTokens(ctx, common.HexToAddress(sender), in.BlockNumber)
			return pairProbe{t0, t1, isPair}, err
		})
	if err == nil && pair.isPair {
		return false
	}
	return true
}

type pairProbe struct {
	t0, t1 common.Address
	isPair bool
}

func senderFundedOwnerFirst(records []TransferRecord, sender, owner string) bool {
	for _, r := range records {
		if strings.EqualFold(r.From, sender) && strings.EqualFold(r.To, owner) {
			return true
		}
	}
	return false
}

// directApprovalMap returns owner(lower) -> spender(lower) -> struct{} for
// approvals where the approving transaction's "from" equals the owner.
func (SleepMintModule) directApprovalMap(in ScanInput) (map[string]map[string]struct{}, error) {
	out := map[string]map[string]struct{}{}
	add := func(owner, spender, txFrom string) {
		if !strings.EqualFold(owner, txFrom) {
			return
		}
		o, s := strings.ToLower(owner), strings.ToLower(spender)
		if out[o] == nil {
			out[o] = map[string]struct{}{}
		}
		out[o][s] = struct{}{}
	}

	switch in.Token.Standard {
	case "ERC20":
		events, err := in.Store.Erc20Approval(in.Token.Address)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			add(e.Owner, e.Spender, e.Transaction.From)
		}
	case "ERC721":
		events, err := in.Store.Erc721ApprovalForAll(in.Token.Address)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			add(e.Owner, e.Operator, e.Transaction.From)
		}
	case "ERC1155":
		events, err := in.Store.Erc1155ApprovalForAll(in.Token.Address)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			add(e.Owner, e.Operator, e.Transaction.From)
		}
	}
	return out, nil
}

func (SleepMintModule) SimplifyMetadata(r Result) any {
	if !r.Detected {
		return nil
	}
	return r.Metadata
}
