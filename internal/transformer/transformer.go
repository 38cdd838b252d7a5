// Package transformer derives per-token views (balances per account,
// transaction set) from the event store. Derivations are pure and uncached;
// the detector modules call them directly on every scan, without memoizing
// the results.
package transformer

import (
	"math/big"

	"tokenwatch/internal/model"
	"tokenwatch/internal/store"
)

// Transformer wraps a Store to provide derived views.
type Transformer struct {
	store *store.Store
}

// New wraps s.
func New(s *store.Store) *Transformer {
	return &Transformer{store: s}
}

var zeroAddress = model.NormalizeAddress("0x0000000000000000000000000000000000000000")

// BalanceByAccount returns net inbound-minus-outbound per account for
// token, excluding the zero address from both sides. ERC-721 transfers
// contribute ±1; ERC-1155 TransferBatch contributes the sum of that
// event's values, per spec.md §4.C.
func (t *Transformer) BalanceByAccount(token string, standard model.TokenStandard) (map[string]*big.Int, error) {
	balances := make(map[string]*big.Int)
	add := func(addr string, delta *big.Int) {
		addr = model.NormalizeAddress(addr)
		if addr == zeroAddress {
			return
		}
		cur, ok := balances[addr]
		if !ok {
			cur = new(big.Int)
			balances[addr] = cur
		}
		cur.Add(cur, delta)
	}

	switch standard {
	case model.StandardERC20:
		events, err := t.store.Erc20Transfer(token)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			v := model.BigFromDecimalString(e.Value)
			add(e.From, new(big.Int).Neg(v))
			add(e.To, v)
		}
	case model.StandardERC721:
		events, err := t.store.Erc721Transfer(token)
		if err != nil {
			return nil, err
		}
		one := big.NewInt(1)
		for _, e := range events {
			add(e.From, new(big.Int).Neg(one))
			add(e.To, one)
		}
	case model.StandardERC1155:
		singles, err := t.store.Erc1155TransferSingle(token)
		if err != nil {
			return nil, err
		}
		for _, e := range singles {
			v := model.BigFromDecimalString(e.Value)
			add(e.From, new(big.Int).Neg(v))
			add(e.To, v)
		}
		batches, err := t.store.Erc1155TransferBatch(token)
		if err != nil {
			return nil, err
		}
		for _, e := range batches {
			sum := new(big.Int)
			for _, v := range e.Values {
				sum.Add(sum, model.BigFromDecimalString(v))
			}
			add(e.From, new(big.Int).Neg(sum))
			add(e.To, sum)
		}
	}
	return balances, nil
}

// Transactions returns the union of transactions directly addressed to
// token with transactions carrying any event emitted by token, per
// spec.md §4.C.
func (t *Transformer) Transactions(token string, standard model.TokenStandard) ([]store.Transaction, error) {
	direct, err := t.store.Transactions(token)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint64]struct{}, len(direct))
	out := make([]store.Transaction, 0, len(direct))
	for _, tx := range direct {
		seen[tx.ID] = struct{}{}
		out = append(out, tx)
	}

	addFromEvents := func(txs []store.Transaction) {
		for _, tx := range txs {
			if _, ok := seen[tx.ID]; ok {
				continue
			}
			seen[tx.ID] = struct{}{}
			out = append(out, tx)
		}
	}

	switch standard {
	case model.StandardERC20:
		if transfers, err := t.store.Erc20Transfer(token); err == nil {
			addFromEvents(transfersToTx(transfers))
		}
		if approvals, err := t.store.Erc20Approval(token); err == nil {
			addFromEvents(transfersToTx(approvals))
		}
	case model.StandardERC721:
		if transfers, err := t.store.Erc721Transfer(token); err == nil {
			addFromEvents(transfersToTx(transfers))
		}
	case model.StandardERC1155:
		if singles, err := t.store.Erc1155TransferSingle(token); err == nil {
			addFromEvents(transfersToTx(singles))
		}
		if batches, err := t.store.Erc1155TransferBatch(token); err == nil {
			addFromEvents(transfersToTx(batches))
		}
	}
	return out, nil
}

func transfersToTx(events []store.Event) []store.Transaction {
	out := make([]store.Transaction, 0, len(events))
	for _, e := range events {
		out = append(out, e.Transaction)
	}
	return out
}
