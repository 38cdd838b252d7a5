package orchestrator

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"tokenwatch/internal/analyzer"
	"tokenwatch/internal/config"
	"tokenwatch/internal/memoizer"
	"tokenwatch/internal/model"
	"tokenwatch/internal/store"
	"tokenwatch/internal/transformer"
)

type stubProvider struct{}

func (stubProvider) CodeAt(context.Context, common.Address, uint64) (int, error) { return 0, nil }
func (stubProvider) TokenMetadata(context.Context, common.Address) (string, string, error) {
	return "Test", "TST", nil
}
func (stubProvider) OwnerOf(context.Context, common.Address, *big.Int, uint64) (common.Address, error) {
	return common.Address{}, nil
}
func (stubProvider) TokenURI(context.Context, common.Address, *big.Int, uint64) (string, error) {
	return "", nil
}
func (stubProvider) TotalSupply(context.Context, common.Address, uint64) (*big.Int, bool, error) {
	return nil, false, nil
}
func (stubProvider) Allowance(context.Context, common.Address, common.Address, common.Address, uint64) (*big.Int, error) {
	return big.NewInt(0), nil
}
func (stubProvider) PairTokens(context.Context, common.Address, uint64) (common.Address, common.Address, bool, error) {
	return common.Address{}, common.Address{}, false, nil
}

type stubHoneypot struct{}

func (stubHoneypot) IsHoneypot(context.Context, common.Address, uint64) (bool, map[string]any, error) {
	return false, nil, nil
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	s, err := store.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	tr := transformer.New(s)
	mem := memoizer.New()
	var fullCfg config.Config
	config.Defaults(&fullCfg)
	cfg := &fullCfg.Detectors

	a := analyzer.New(s, tr, mem, stubProvider{}, stubHoneypot{}, nil, nil, cfg, nil)
	return New(s, mem, a, time.Hour, nil)
}

func TestOnNewTokenWatchesIt(t *testing.T) {
	o := newTestOrchestrator(t)
	tc := store.TokenContract{Address: "0x0000000000000000000000000000000000aaaa", Standard: model.StandardERC20, DeploymentTime: time.Now()}
	if err := o.OnNewToken(tc); err != nil {
		t.Fatalf("OnNewToken: %v", err)
	}
	o.mu.Lock()
	_, watched := o.watched[tc.Address]
	o.mu.Unlock()
	if !watched {
		t.Fatalf("expected token to be watched after OnNewToken")
	}
}

func TestTickSkipsTokenWithPendingResult(t *testing.T) {
	o := newTestOrchestrator(t)
	addr := "0x0000000000000000000000000000000000bbbb"
	o.mu.Lock()
	o.watched[addr] = store.TokenContract{Address: addr}
	o.resultByToken[addr] = Released{}
	o.mu.Unlock()

	o.Tick(time.Now(), 1)
	o.mu.Lock()
	inFlight := o.taskByToken[addr]
	o.mu.Unlock()
	if inFlight {
		t.Fatalf("did not expect a task to be enqueued while a result is pending release")
	}
}

func TestReleaseAnalysesDeletesFinalizedTokens(t *testing.T) {
	o := newTestOrchestrator(t)
	addr := "0x0000000000000000000000000000000000cccc"
	o.mu.Lock()
	o.watched[addr] = store.TokenContract{Address: addr}
	o.resultByToken[addr] = Released{Interp: analyzer.Interpretation{IsFinalized: true}}
	o.mu.Unlock()

	released := o.ReleaseAnalyses()
	if len(released) != 1 {
		t.Fatalf("expected 1 released entry, got %d", len(released))
	}
	o.mu.Lock()
	_, stillWatched := o.watched[addr]
	o.mu.Unlock()
	if stillWatched {
		t.Fatalf("expected finalized token to be removed from the watched set")
	}
}
