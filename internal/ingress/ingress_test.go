package ingress

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"tokenwatch/internal/analyzer"
	"tokenwatch/internal/config"
	"tokenwatch/internal/memoizer"
	"tokenwatch/internal/model"
	"tokenwatch/internal/orchestrator"
	"tokenwatch/internal/store"
	"tokenwatch/internal/transformer"
)

type stubIdentifier struct {
	standard string
	ok       bool
}

func (s stubIdentifier) IdentifyStandard(context.Context, common.Address, uint64) (string, bool, error) {
	return s.standard, s.ok, nil
}

func newTestAdapter(t *testing.T, id stubIdentifier) (*Adapter, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	tr := transformer.New(s)
	mem := memoizer.New()
	var cfg config.Config
	config.Defaults(&cfg)
	a := analyzer.New(s, tr, mem, nil, nil, nil, nil, &cfg.Detectors, nil)
	o := orchestrator.New(s, mem, a, time.Hour, nil)
	return New(s, o, id, nil), s
}

func transferTopics(from, to string) []string {
	return []string{
		"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		common.HexToHash(from).Hex(),
		common.HexToHash(to).Hex(),
	}
}

func TestHandleTxRegistersNewlyDeployedToken(t *testing.T) {
	a, s := newTestAdapter(t, stubIdentifier{standard: "ERC20", ok: true})
	created := "0x00000000000000000000000000000000001111"

	err := a.HandleTx(context.Background(), TxEvent{
		Hash: "0xabc", From: "0x0000000000000000000000000000000000dead",
		BlockNumber: 10, BlockTimestamp: time.Now(),
		CreatedContracts: []CreatedContract{{Address: created}},
	})
	if err != nil {
		t.Fatalf("HandleTx: %v", err)
	}
	tc, ok, err := s.Token(created)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if !ok {
		t.Fatalf("expected newly deployed contract to be watched")
	}
	if tc.Standard != model.StandardERC20 {
		t.Fatalf("standard = %v, want ERC20", tc.Standard)
	}
}

func TestHandleTxIgnoresUnrecognizedContract(t *testing.T) {
	a, s := newTestAdapter(t, stubIdentifier{ok: false})
	created := "0x00000000000000000000000000000000002222"

	if err := a.HandleTx(context.Background(), TxEvent{
		Hash: "0xdef", From: "0x0000000000000000000000000000000000dead",
		BlockNumber: 1, BlockTimestamp: time.Now(),
		CreatedContracts: []CreatedContract{{Address: created}},
	}); err != nil {
		t.Fatalf("HandleTx: %v", err)
	}
	if _, ok, _ := s.Token(created); ok {
		t.Fatalf("did not expect an unrecognized contract to be watched")
	}
}

func TestHandleTxDecodesTransferIntoWatchedToken(t *testing.T) {
	a, s := newTestAdapter(t, stubIdentifier{})
	token := "0x0000000000000000000000000000000000beef"
	if err := s.AddToken(store.TokenContract{Address: token, Standard: model.StandardERC20, DeploymentTime: time.Now()}); err != nil {
		t.Fatalf("AddToken: %v", err)
	}

	from := "0x0000000000000000000000000000000000aaaa"
	to := "0x0000000000000000000000000000000000bbbb"
	err := a.HandleTx(context.Background(), TxEvent{
		Hash: "0x01", From: from, To: token,
		BlockNumber: 5, BlockTimestamp: time.Now(), TxIndex: 0,
		Logs: []Log{{
			Address:  token,
			Topics:   transferTopics(from, to),
			Data:     make([]byte, 32), // value = 0, still a well-formed uint256 word
			LogIndex: 0,
		}},
	})
	if err != nil {
		t.Fatalf("HandleTx: %v", err)
	}

	events, err := s.Erc20Transfer(token)
	if err != nil {
		t.Fatalf("Erc20Transfer: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 decoded transfer, got %d", len(events))
	}
}

func TestHandleTxSkipsTransactionsThatDoNotTouchWatchedTokens(t *testing.T) {
	a, s := newTestAdapter(t, stubIdentifier{})
	if err := a.HandleTx(context.Background(), TxEvent{
		Hash: "0x02", From: "0x0000000000000000000000000000000000aaaa",
		To: "0x0000000000000000000000000000000000cccc",
		BlockNumber: 1, BlockTimestamp: time.Now(),
	}); err != nil {
		t.Fatalf("HandleTx: %v", err)
	}
	if _, ok, _ := s.TransactionByHash("0x02"); ok {
		t.Fatalf("did not expect an unrelated transaction to be recorded")
	}
}
