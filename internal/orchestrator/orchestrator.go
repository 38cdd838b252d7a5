// Package orchestrator owns the watched-token set and the single-worker
// analysis queue described by spec.md §4.F: at most one analysis runs at
// any instant, tasks are strictly serial per token and FIFO across tokens.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tokenwatch/internal/analyzer"
	"tokenwatch/internal/memoizer"
	"tokenwatch/internal/store"
)

// Released is one entry of a releaseAnalyses() batch.
type Released struct {
	Token      store.TokenContract
	Analysis   analyzer.Analysis
	Interp     analyzer.Interpretation
	Prev       analyzer.Analysis
	PrevInterp analyzer.Interpretation
}

// Orchestrator runs the FIFO single-worker task queue over the watched
// token set, per spec.md §4.F.
type Orchestrator struct {
	Store        *store.Store
	Memoizer     *memoizer.Memoizer
	Analyzer     *analyzer.Analyzer
	TickInterval time.Duration
	Log          *logrus.Entry

	mu            sync.Mutex
	watched       map[string]store.TokenContract
	taskByToken   map[string]bool
	resultByToken map[string]Released
	lastRunAt     map[string]time.Time

	queue chan task
	wg    sync.WaitGroup
}

// task is one queued unit of work: the token to analyze and the chain head
// observed at the Tick that enqueued it, per spec.md §4.F's
// tick(timestamp, blockNumber).
type task struct {
	address     string
	blockNumber uint64
}

// New constructs an Orchestrator with a bounded task queue.
func New(s *store.Store, m *memoizer.Memoizer, a *analyzer.Analyzer, tickInterval time.Duration, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		Store: s, Memoizer: m, Analyzer: a, TickInterval: tickInterval, Log: log,
		watched:       make(map[string]store.TokenContract),
		taskByToken:   make(map[string]bool),
		resultByToken: make(map[string]Released),
		lastRunAt:     make(map[string]time.Time),
		queue:         make(chan task, 4096),
	}
}

// Start launches the single worker goroutine that drains the task queue.
// It runs until ctx is cancelled.
func (o *Orchestrator) Start(ctx context.Context) {
	go o.worker(ctx)
}

func (o *Orchestrator) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-o.queue:
			if !ok {
				return
			}
			o.runTask(ctx, t.address, t.blockNumber)
		}
	}
}

func (o *Orchestrator) runTask(ctx context.Context, address string, blockNumber uint64) {
	defer o.wg.Done()

	o.mu.Lock()
	token, watched := o.watched[address]
	prevReleased, hadPrev := o.resultByToken[address]
	o.mu.Unlock()
	if !watched {
		return // token was deleted while its task was queued
	}

	at := analyzer.Task{Token: token, Timestamp: time.Now(), BlockNumber: blockNumber}
	out, interp, err := o.Analyzer.Run(ctx, at)
	if err != nil {
		if o.Log != nil {
			o.Log.WithError(err).WithField("token", address).Error("analysis failed")
		}
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.taskByToken[address] {
		// deleted mid-flight: discard this result, per spec.md §4.F cancellation rule.
		return
	}
	o.taskByToken[address] = false
	o.lastRunAt[address] = time.Now()

	released := Released{Token: token, Analysis: out, Interp: interp}
	if hadPrev {
		released.Prev = prevReleased.Analysis
		released.PrevInterp = prevReleased.Interp
	}
	o.resultByToken[address] = released
}

// OnNewToken adds tc to the store and the watched set.
func (o *Orchestrator) OnNewToken(tc store.TokenContract) error {
	if err := o.Store.AddToken(tc); err != nil {
		return err
	}
	o.mu.Lock()
	o.watched[tc.Address] = tc
	o.mu.Unlock()
	return nil
}

// OnTransaction forwards a decoded transaction to the store.
func (o *Orchestrator) OnTransaction(tx store.Transaction) error {
	_, err := o.Store.AddTransaction(tx)
	return err
}

// Tick enqueues a fresh task for every watched token that has no pending
// result and either has no task in flight or finished its previous one
// more than TickInterval ago. blockNumber is the chain head observed at
// this tick and is carried through to every enqueued task's
// analyzer.Task.BlockNumber, per spec.md §4.F's tick(timestamp, blockNumber).
func (o *Orchestrator) Tick(now time.Time, blockNumber uint64) {
	o.mu.Lock()
	var toEnqueue []string
	for address := range o.watched {
		if o.taskByToken[address] {
			continue
		}
		if _, hasResult := o.resultByToken[address]; hasResult {
			continue
		}
		last, ran := o.lastRunAt[address]
		if ran && now.Sub(last) < o.TickInterval {
			continue
		}
		o.taskByToken[address] = true
		toEnqueue = append(toEnqueue, address)
	}
	o.mu.Unlock()

	for _, address := range toEnqueue {
		o.wg.Add(1)
		o.queue <- task{address: address, blockNumber: blockNumber}
	}
}

// Drain blocks until the task queue is empty, for tests.
func (o *Orchestrator) Drain() {
	o.wg.Wait()
}

// ReleaseAnalyses atomically drains resultByToken. Finalized results cause
// their token to be deleted (store purge, memoizer scope drop, task map
// removal), per spec.md §4.F.
func (o *Orchestrator) ReleaseAnalyses() []Released {
	o.mu.Lock()
	out := make([]Released, 0, len(o.resultByToken))
	var toDelete []string
	for address, r := range o.resultByToken {
		out = append(out, r)
		delete(o.resultByToken, address)
		if r.Interp.IsFinalized {
			toDelete = append(toDelete, address)
		}
	}
	o.mu.Unlock()

	for _, address := range toDelete {
		o.deleteToken(address)
	}
	return out
}

// DeleteToken is the symmetric cleanup path for removing a token outside
// of a finalized release (e.g. an external unwatch request).
func (o *Orchestrator) DeleteToken(address string) error {
	return o.deleteToken(address)
}

func (o *Orchestrator) deleteToken(address string) error {
	o.mu.Lock()
	delete(o.watched, address)
	delete(o.taskByToken, address)
	delete(o.resultByToken, address)
	delete(o.lastRunAt, address)
	o.mu.Unlock()

	o.Memoizer.DeleteScope(address)
	return o.Store.ClearToken(address)
}
