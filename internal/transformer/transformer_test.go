package transformer

import (
	"testing"
	"time"

	"tokenwatch/internal/model"
	"tokenwatch/internal/store"
)

const (
	testToken = "0x00000000000000000000000000000000000aaa"
	alice     = "0x00000000000000000000000000000000000a11"
	bob       = "0x00000000000000000000000000000000000b0b"
	zeroAddr  = "0x0000000000000000000000000000000000000000"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func insertTransfer(t *testing.T, s *store.Store, hash string, idx int, from, to, value string) {
	t.Helper()
	txID, err := s.AddTransaction(store.Transaction{
		Hash: hash, From: from, To: testToken, BlockNumber: uint64(idx), BlockTimestamp: time.Now(), TxIndex: 0,
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	ref := store.EventRef{TransactionID: txID, LogIndex: 0, BlockNumber: uint64(idx)}
	if err := s.AddERC20Transfer(testToken, ref, from, to, value); err != nil {
		t.Fatalf("add transfer: %v", err)
	}
}

func TestBalanceByAccountERC20NetsTransfers(t *testing.T) {
	s := newTestStore(t)
	insertTransfer(t, s, "0x1", 1, zeroAddr, alice, "100")
	insertTransfer(t, s, "0x2", 2, alice, bob, "40")

	tr := New(s)
	balances, err := tr.BalanceByAccount(testToken, model.StandardERC20)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}

	if got := balances[model.NormalizeAddress(alice)]; got == nil || got.String() != "60" {
		t.Fatalf("alice balance = %v, want 60", got)
	}
	if got := balances[model.NormalizeAddress(bob)]; got == nil || got.String() != "40" {
		t.Fatalf("bob balance = %v, want 40", got)
	}
	if _, ok := balances[model.NormalizeAddress(zeroAddr)]; ok {
		t.Fatalf("zero address should be excluded from balances")
	}
}

func TestTransactionsDeduplicatesDirectAndEventTransactions(t *testing.T) {
	s := newTestStore(t)
	insertTransfer(t, s, "0x1", 1, model.AbsentAddress, alice, "100")

	tr := New(s)
	txs, err := tr.Transactions(testToken, model.StandardERC20)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("len(txs) = %d, want 1 (direct tx and its own transfer event must not double-count)", len(txs))
	}
}
