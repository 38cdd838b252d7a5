package detect

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"tokenwatch/internal/store"
)

// totalSupplyProvider reports a fixed declared totalSupply and otherwise
// behaves like confirmingProvider.
type totalSupplyProvider struct {
	confirmingProvider
	declared int64
}

func (p totalSupplyProvider) TotalSupply(context.Context, common.Address, uint64) (*big.Int, bool, error) {
	return big.NewInt(p.declared), true, nil
}

func TestErc721FalseTotalSupplyUsesCurrentOwnerNotHistoricalRecipientCount(t *testing.T) {
	token := "0xtoken"
	in, s := newTestScanInput(t, token)
	in.Provider = totalSupplyProvider{declared: 1}

	// tokenID "1" is minted then resold twice: three distinct historical
	// recipients, but only one current owner.
	mintTx := addTransferTx(t, s, "0xmint", 1)
	if err := s.AddERC721Transfer(token, store.EventRef{TransactionID: mintTx, LogIndex: 0}, "0x0000000000000000000000000000000000000000", "0xfirstowner", "1"); err != nil {
		t.Fatalf("AddERC721Transfer mint: %v", err)
	}
	resaleTx := addTransferTx(t, s, "0xresale", 2)
	if err := s.AddERC721Transfer(token, store.EventRef{TransactionID: resaleTx, LogIndex: 0}, "0xfirstowner", "0xsecondowner", "1"); err != nil {
		t.Fatalf("AddERC721Transfer resale: %v", err)
	}
	resaleTx2 := addTransferTx(t, s, "0xresale2", 3)
	if err := s.AddERC721Transfer(token, store.EventRef{TransactionID: resaleTx2, LogIndex: 0}, "0xsecondowner", "0xthirdowner", "1"); err != nil {
		t.Fatalf("AddERC721Transfer resale2: %v", err)
	}

	result, _, err := Erc721FalseTotalSupplyModule{}.Scan(context.Background(), in)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	// actual current supply is 1 (tokenID "1" owned by 0xthirdowner), which
	// matches the declared totalSupply of 1 — no under-declaration.
	if result.Detected {
		t.Fatalf("did not expect detection: trading churn must not inflate actualTotalSupply, got %+v", result)
	}
}

func TestErc721FalseTotalSupplyDetectsGenuineUnderDeclaration(t *testing.T) {
	token := "0xtoken"
	in, s := newTestScanInput(t, token)
	in.Provider = totalSupplyProvider{declared: 1}

	for i, tokenID := range []string{"1", "2"} {
		mintTx := addTransferTx(t, s, "0xmint"+tokenID, uint64(i+1))
		if err := s.AddERC721Transfer(token, store.EventRef{TransactionID: mintTx, LogIndex: 0}, "0x0000000000000000000000000000000000000000", "0xowner"+tokenID, tokenID); err != nil {
			t.Fatalf("AddERC721Transfer mint: %v", err)
		}
	}

	result, _, err := Erc721FalseTotalSupplyModule{}.Scan(context.Background(), in)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !result.Detected {
		t.Fatalf("expected detection: 2 currently-owned tokenIds vs declared supply of 1, got %+v", result)
	}
	md, ok := result.Metadata.(map[string]any)
	if !ok || md["actualTotalSupply"] != int64(2) {
		t.Fatalf("expected actualTotalSupply=2, got %+v", result.Metadata)
	}
}
