package detect

import (
	"context"
	"testing"
	"time"

	"tokenwatch/internal/store"
)

func TestAirdropDetectsManyReceiversInOneTxConfirmedAsEOAs(t *testing.T) {
	token := "0xtoken"
	in, s := newTestScanInput(t, token)
	in.Token.Standard = "ERC20"
	in.Config.MinReceiversPerTx = 3
	in.Config.MinReceiversPerSender = 2
	in.Provider = confirmingProvider{} // CodeAt always returns 0: every receiver is an EOA

	txID, err := s.AddTransaction(store.Transaction{
		Hash: "0xairdrop", From: "0xsender", To: token, BlockNumber: 5, TxIndex: 0, BlockTimestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	for i, receiver := range []string{"0xr1", "0xr2", "0xr3", "0xr4"} {
		if err := s.AddERC20Transfer(token, store.EventRef{TransactionID: txID, LogIndex: i}, "0xsender", receiver, "100"); err != nil {
			t.Fatalf("AddERC20Transfer: %v", err)
		}
	}

	result, _, err := AirdropModule{}.Scan(context.Background(), in)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !result.Detected {
		t.Fatalf("expected an airdrop to be detected, got %+v", result)
	}
	md, ok := result.Metadata.(AirdropMetadata)
	if !ok || len(md.Receivers) != 4 {
		t.Fatalf("expected 4 receivers recorded, got %+v", result.Metadata)
	}
}

func TestAirdropIgnoresSenderBelowReceiverThreshold(t *testing.T) {
	token := "0xtoken"
	in, s := newTestScanInput(t, token)
	in.Token.Standard = "ERC20"
	in.Config.MinReceiversPerTx = 10
	in.Config.MinReceiversPerSender = 10
	in.Provider = confirmingProvider{}

	txID, err := s.AddTransaction(store.Transaction{
		Hash: "0xsmall", From: "0xsender", To: token, BlockNumber: 5, TxIndex: 0, BlockTimestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if err := s.AddERC20Transfer(token, store.EventRef{TransactionID: txID, LogIndex: 0}, "0xsender", "0xr1", "100"); err != nil {
		t.Fatalf("AddERC20Transfer: %v", err)
	}

	result, _, err := AirdropModule{}.Scan(context.Background(), in)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Detected {
		t.Fatalf("did not expect detection for a single receiver, got %+v", result)
	}
}
