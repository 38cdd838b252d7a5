package store

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func TestAddTransactionIdempotent(t *testing.T) {
	s := newTestStore(t)
	tx := Transaction{Hash: "0xabc", From: "0x1", To: "0x2", BlockNumber: 1, TxIndex: 0, BlockTimestamp: time.Now()}

	id1, err := s.AddTransaction(tx)
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	id2, err := s.AddTransaction(tx)
	if err != nil {
		t.Fatalf("AddTransaction (repeat) failed: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same id on repeat insert, got %d and %d", id1, id2)
	}
}

func TestClearTokenAddressGC(t *testing.T) {
	s := newTestStore(t)
	token := "0xtoken"
	deployer := "0xdeployer"

	if err := s.AddToken(TokenContract{Address: token, DeployerAddress: deployer, DeploymentBlock: 1, DeploymentTime: time.Now(), Standard: "ERC20"}); err != nil {
		t.Fatalf("AddToken failed: %v", err)
	}
	txID, err := s.AddTransaction(Transaction{Hash: "0xh1", From: "0xsender", To: token, BlockNumber: 1, TxIndex: 0, BlockTimestamp: time.Now()})
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	if err := s.AddERC20Transfer(token, EventRef{TransactionID: txID, LogIndex: 0}, "0xsender", "0xreceiver", "100"); err != nil {
		t.Fatalf("AddERC20Transfer failed: %v", err)
	}

	if err := s.ClearToken(token); err != nil {
		t.Fatalf("ClearToken failed: %v", err)
	}

	for _, addr := range []string{token} {
		id, err := s.ResolveAddressID(nil, addr)
		if err != nil {
			t.Fatalf("ResolveAddressID failed: %v", err)
		}
		// resolveAddress re-inserts if absent, so check it was actually gone
		// beforehand by inspecting row count instead.
		_ = id
	}

	var count int64
	s.db.Table("addresses").Where("hex = ?", "0xreceiver").Count(&count)
	if count != 0 {
		t.Fatalf("expected receiver address to be GC'd, found %d rows", count)
	}

	// Re-invoking ClearToken on an unknown address is a no-op.
	if err := s.ClearToken("0xneverexisted"); err != nil {
		t.Fatalf("ClearToken on unknown address should be a no-op, got: %v", err)
	}
}

func TestErc20TransferOrdering(t *testing.T) {
	s := newTestStore(t)
	token := "0xtoken"
	if err := s.AddToken(TokenContract{Address: token, DeployerAddress: "0xd", DeploymentBlock: 1, DeploymentTime: time.Now(), Standard: "ERC20"}); err != nil {
		t.Fatalf("AddToken failed: %v", err)
	}

	txA, _ := s.AddTransaction(Transaction{Hash: "0xa", From: "0x1", To: token, BlockNumber: 2, TxIndex: 0, BlockTimestamp: time.Now()})
	txB, _ := s.AddTransaction(Transaction{Hash: "0xb", From: "0x1", To: token, BlockNumber: 1, TxIndex: 0, BlockTimestamp: time.Now()})

	if err := s.AddERC20Transfer(token, EventRef{TransactionID: txA, LogIndex: 1}, "0x1", "0x2", "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddERC20Transfer(token, EventRef{TransactionID: txA, LogIndex: 0}, "0x1", "0x2", "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddERC20Transfer(token, EventRef{TransactionID: txB, LogIndex: 0}, "0x1", "0x2", "1"); err != nil {
		t.Fatal(err)
	}

	events, err := s.Erc20Transfer(token)
	if err != nil {
		t.Fatalf("Erc20Transfer failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if eventOrderKey(events[i]).Less(eventOrderKey(events[i-1])) {
			t.Fatalf("events not monotone non-decreasing at index %d", i)
		}
	}
}
