// Package analyzer runs the fixed detector battery against a single
// watched token and turns its raw Context into a public Interpretation,
// per spec.md §4.E.
package analyzer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"tokenwatch/internal/chain"
	"tokenwatch/internal/config"
	"tokenwatch/internal/detect"
	"tokenwatch/internal/memoizer"
	"tokenwatch/internal/store"
	"tokenwatch/internal/tokenlist"
	"tokenwatch/internal/transformer"
)

// Task is one run of the module battery against one token.
type Task struct {
	Token       store.TokenContract
	Timestamp   time.Time
	BlockNumber uint64
}

// Analyzer owns the collaborators every module needs and runs tasks
// against a fresh, empty Context each time.
type Analyzer struct {
	Store       *store.Store
	Transformer *transformer.Transformer
	Memoizer    *memoizer.Memoizer
	Provider    chain.Provider
	Honeypot    chain.HoneypotOracle
	TokenList   chain.TokenList
	Leaderboard *tokenlist.Leaderboard
	Config      *config.Detectors
	Log         *logrus.Entry

	modules map[detect.Key]detect.Module
}

// New constructs an Analyzer wired to its collaborators.
func New(s *store.Store, tr *transformer.Transformer, m *memoizer.Memoizer,
	provider chain.Provider, honeypot chain.HoneypotOracle, tokenList chain.TokenList,
	leaderboard *tokenlist.Leaderboard, cfg *config.Detectors, log *logrus.Entry) *Analyzer {
	return &Analyzer{
		Store: s, Transformer: tr, Memoizer: m, Provider: provider,
		Honeypot: honeypot, TokenList: tokenList, Leaderboard: leaderboard,
		Config: cfg, Log: log, modules: detect.Modules(),
	}
}

// Short is the externalized per-module finding retained after a scan.
type Short struct {
	Detected bool
	Metadata any
}

// Analysis is the externalized context produced by a Run: the only object
// retained after the scan, per spec.md §4.E.
type Analysis map[detect.Key]Short

// Run executes the fixed battery against a fresh Context, honoring
// interrupt, and returns the externalized Analysis plus its public
// Interpretation.
func (a *Analyzer) Run(ctx context.Context, task Task) (Analysis, Interpretation, error) {
	scanCtx := make(detect.Context, len(detect.Order))
	in := detect.ScanInput{
		Token: task.Token, Timestamp: task.Timestamp, BlockNumber: task.BlockNumber,
		Context: scanCtx, Memoizer: a.Memoizer, Store: a.Store, Transformer: a.Transformer,
		Provider: a.Provider, Honeypot: a.Honeypot, TokenList: a.TokenList,
		Leaderboard: a.Leaderboard, Config: a.Config,
	}

	out := make(Analysis, len(detect.Order))
	for _, key := range detect.Order {
		mod, ok := a.modules[key]
		if !ok {
			continue
		}
		result, interrupt, err := mod.Scan(ctx, in)
		if err != nil {
			if a.Log != nil {
				a.Log.WithError(err).WithField("module", key).Warn("detector module failed, treating as non-detecting")
			}
			result = detect.Result{Detected: false}
		}
		scanCtx[key] = result
		out[key] = Short{Detected: result.Detected, Metadata: mod.SimplifyMetadata(result)}
		if interrupt {
			break
		}
	}

	return out, Interpret(scanCtx, a.Config), nil
}
