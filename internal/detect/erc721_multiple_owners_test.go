package detect

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"tokenwatch/internal/config"
	"tokenwatch/internal/memoizer"
	"tokenwatch/internal/store"
	"tokenwatch/internal/transformer"
)

// confirmingProvider answers OwnerOf with the same address for any block,
// so every anomaly check in these tests confirms successfully on-chain.
type confirmingProvider struct {
	owner common.Address
}

func (confirmingProvider) CodeAt(context.Context, common.Address, uint64) (int, error) {
	return 0, nil
}
func (confirmingProvider) TokenMetadata(context.Context, common.Address) (string, string, error) {
	return "", "", nil
}
func (p confirmingProvider) OwnerOf(context.Context, common.Address, *big.Int, uint64) (common.Address, error) {
	return p.owner, nil
}
func (confirmingProvider) TokenURI(context.Context, common.Address, *big.Int, uint64) (string, error) {
	return "", nil
}
func (confirmingProvider) TotalSupply(context.Context, common.Address, uint64) (*big.Int, bool, error) {
	return nil, false, nil
}
func (confirmingProvider) Allowance(context.Context, common.Address, common.Address, common.Address, uint64) (*big.Int, error) {
	return big.NewInt(0), nil
}
func (confirmingProvider) PairTokens(context.Context, common.Address, uint64) (common.Address, common.Address, bool, error) {
	return common.Address{}, common.Address{}, false, nil
}

func newTestScanInput(t *testing.T, token string) (ScanInput, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.AddToken(store.TokenContract{
		Address: token, DeployerAddress: "0xdeployer", DeploymentBlock: 1,
		DeploymentTime: time.Now(), Standard: "ERC721",
	}); err != nil {
		t.Fatalf("AddToken: %v", err)
	}
	var cfg config.Config
	config.Defaults(&cfg)

	in := ScanInput{
		Token:       store.TokenContract{Address: token, Standard: "ERC721"},
		Timestamp:   time.Now(),
		BlockNumber: 100,
		Context:     Context{},
		Memoizer:    memoizer.New(),
		Store:       s,
		Transformer: transformer.New(s),
		Provider:    confirmingProvider{owner: common.HexToAddress("0xfeed")},
		Config:      &cfg.Detectors,
	}
	return in, s
}

func addTransferTx(t *testing.T, s *store.Store, hash string, block uint64) uint64 {
	t.Helper()
	id, err := s.AddTransaction(store.Transaction{
		Hash: hash, From: "0xsender", To: "0xtoken", BlockNumber: block, TxIndex: 0, BlockTimestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	return id
}

// selectiveProvider answers OwnerOf deterministically but differently per
// tokenID: tokenID "1" reports the same owner at every block (a confirmable
// anomaly), tokenID "2" reports a different owner depending on the block
// parity (an unconfirmable one — a real ownership change, not fraud).
type selectiveProvider struct{ confirmingProvider }

func (selectiveProvider) OwnerOf(_ context.Context, _ common.Address, id *big.Int, block uint64) (common.Address, error) {
	if id.String() == "2" {
		if block%2 == 0 {
			return common.HexToAddress("0xaaaa"), nil
		}
		return common.HexToAddress("0xbbbb"), nil
	}
	return common.HexToAddress("0xfeed"), nil
}

func TestErc721MultipleOwnersOnlySuppressesRedundantConfirmationsNotDistinctTokenIDs(t *testing.T) {
	token := "0xtoken"
	in, s := newTestScanInput(t, token)
	in.Config.MinNumberOfDuplicateTokens = 1
	in.Provider = selectiveProvider{}

	// Two independent tokenIds, each minted then transferred by someone
	// other than its recorded owner, with both anomalies landing in the
	// same block (LogIndex 0 and 1).
	for i, tokenID := range []string{"1", "2"} {
		mintTx := addTransferTx(t, s, "0xmint"+tokenID, 1)
		if err := s.AddERC721Transfer(token, store.EventRef{TransactionID: mintTx, LogIndex: 0}, "0x0000000000000000000000000000000000000000", "0xowner", tokenID); err != nil {
			t.Fatalf("AddERC721Transfer mint: %v", err)
		}
		anomalyTx := addTransferTx(t, s, "0xanomaly"+tokenID, 2)
		if err := s.AddERC721Transfer(token, store.EventRef{TransactionID: anomalyTx, LogIndex: i}, "0xnotowner", "0xreceiver"+tokenID, tokenID); err != nil {
			t.Fatalf("AddERC721Transfer anomaly: %v", err)
		}
	}

	result, _, err := Erc721MultipleOwnersModule{}.Scan(context.Background(), in)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !result.Detected {
		t.Fatalf("expected detection, got %+v", result)
	}
	md, ok := result.Metadata.(map[string]any)
	// tokenID "2"'s anomaly must be independently (dis)confirmed rather than
	// riding on tokenID "1"'s confirmation from earlier in the same block.
	if !ok || md["duplicatedTokens"] != 1 {
		t.Fatalf("expected only the confirmable tokenID counted, got %+v", result.Metadata)
	}
}

func TestErc721MultipleOwnersSkipsUnconfirmedAnomaly(t *testing.T) {
	token := "0xtoken"
	in, s := newTestScanInput(t, token)
	in.Config.MinNumberOfDuplicateTokens = 1
	// confirmMultipleOwner requires a prior block to query (block-1); an
	// anomaly at block 0 can never be confirmed.
	in.Provider = confirmingProvider{owner: common.HexToAddress("0xfeed")}

	mintTx := addTransferTx(t, s, "0xmint", 0)
	if err := s.AddERC721Transfer(token, store.EventRef{TransactionID: mintTx, LogIndex: 0}, "0x0000000000000000000000000000000000000000", "0xowner", "1"); err != nil {
		t.Fatalf("AddERC721Transfer mint: %v", err)
	}
	anomalyTx := addTransferTx(t, s, "0xanomaly", 0)
	if err := s.AddERC721Transfer(token, store.EventRef{TransactionID: anomalyTx, LogIndex: 1}, "0xnotowner", "0xreceiver", "1"); err != nil {
		t.Fatalf("AddERC721Transfer anomaly: %v", err)
	}

	result, _, err := Erc721MultipleOwnersModule{}.Scan(context.Background(), in)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Detected {
		t.Fatalf("did not expect detection for an anomaly at block 0 (unconfirmable), got %+v", result)
	}
}
