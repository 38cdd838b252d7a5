package detect

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"tokenwatch/internal/memoizer"
)

// AirdropModule is the battery's core signal: a sender distributing tokens
// to many unique recipients without their initiation (spec.md §4.D module 2).
// Every later module that cares about "the airdrop" reads this module's
// Context entry rather than recomputing transfer grouping.
type AirdropModule struct{}

func (AirdropModule) Key() Key { return KeyAirdrop }

type senderActivity struct {
	receivers map[string]struct{}
	transfers []TransferRecord
	txHashes  map[string]struct{}
}

func (AirdropModule) Scan(ctx context.Context, in ScanInput) (Result, bool, error) {
	records, err := transferRecords(in)
	if err != nil {
		return Result{Detected: false}, false, err
	}

	byToken, err := memoizer.Memo(in.Memoizer, in.Token.Address, "airdropCandidates",
		[]memoizer.Arg{len(records)}, func() (map[string]*senderActivity, error) {
			return groupBySender(records), nil
		})
	if err != nil {
		return Result{Detected: false}, false, err
	}

	cfg := in.Config
	var candidates []string
	for sender, act := range byToken {
		if len(act.receivers) == 0 {
			continue
		}
		if maxReceiversInOneTx(act.transfers) >= cfg.MinReceiversPerTx {
			candidates = append(candidates, sender)
			continue
		}
		if maxReceiversInWindow(act.transfers, cfg.AirdropWindow) > cfg.MinReceiversPerSender {
			candidates = append(candidates, sender)
		}
	}
	sort.Strings(candidates)

	if len(candidates) == 0 {
		return Result{Detected: false}, true, nil
	}

	var senders []string
	receiverSet := map[string]struct{}{}
	txSet := map[string]struct{}{}
	var transfers []AirdropTransfer
	var start, end time.Time

	for _, sender := range candidates {
		act := byToken[sender]
		eoaCount := countEOAs(ctx, in, act.receivers)
		if eoaCount <= cfg.MinReceiversPerSender {
			continue
		}

		senders = append(senders, sender)
		for r := range act.receivers {
			receiverSet[r] = struct{}{}
		}
		for h := range act.txHashes {
			txSet[h] = struct{}{}
		}
		for _, t := range act.transfers {
			transfers = append(transfers, AirdropTransfer{Receiver: t.To, Timestamp: t.Timestamp})
			if start.IsZero() || t.Timestamp.Before(start) {
				start = t.Timestamp
			}
			if t.Timestamp.After(end) {
				end = t.Timestamp
			}
		}
	}

	if len(senders) == 0 {
		return Result{Detected: false}, true, nil
	}

	receivers := make([]string, 0, len(receiverSet))
	for r := range receiverSet {
		receivers = append(receivers, r)
	}
	sort.Strings(receivers)
	txHashes := make([]string, 0, len(txSet))
	for h := range txSet {
		txHashes = append(txHashes, h)
	}
	sort.Strings(txHashes)
	sort.Slice(transfers, func(i, j int) bool { return transfers[i].Timestamp.Before(transfers[j].Timestamp) })

	return Result{Detected: true, Metadata: AirdropMetadata{
		Senders: senders, Receivers: receivers, TxHashes: txHashes,
		Transfers: transfers, StartTime: start, EndTime: end,
	}}, false, nil
}

func (AirdropModule) SimplifyMetadata(r Result) any {
	if !r.Detected {
		return nil
	}
	md, _ := r.Metadata.(AirdropMetadata)
	return map[string]any{
		"senders":      len(md.Senders),
		"receivers":    len(md.Receivers),
		"transactions": len(md.TxHashes),
		"startTime":    md.StartTime,
		"endTime":      md.EndTime,
	}
}

func groupBySender(records []TransferRecord) map[string]*senderActivity {
	out := map[string]*senderActivity{}
	for _, r := range records {
		if strings.EqualFold(r.TxFrom, r.To) {
			continue // claims: sender is the recipient
		}
		act, ok := out[r.TxFrom]
		if !ok {
			act = &senderActivity{receivers: map[string]struct{}{}, txHashes: map[string]struct{}{}}
			out[r.TxFrom] = act
		}
		act.receivers[r.To] = struct{}{}
		act.txHashes[r.TxHash] = struct{}{}
		act.transfers = append(act.transfers, r)
	}
	return out
}

func maxReceiversInOneTx(transfers []TransferRecord) int {
	byTx := map[string]map[string]struct{}{}
	for _, t := range transfers {
		m, ok := byTx[t.TxHash]
		if !ok {
			m = map[string]struct{}{}
			byTx[t.TxHash] = m
		}
		m[t.To] = struct{}{}
	}
	max := 0
	for _, m := range byTx {
		if len(m) > max {
			max = len(m)
		}
	}
	return max
}

// maxReceiversInWindow slides a window of the given duration over the
// chronologically ordered transfers and returns the largest distinct
// receiver count observed within any window.
func maxReceiversInWindow(transfers []TransferRecord, window time.Duration) int {
	sorted := make([]TransferRecord, len(transfers))
	copy(sorted, transfers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	max := 0
	lo := 0
	counts := map[string]int{}
	distinct := 0
	for hi := 0; hi < len(sorted); hi++ {
		r := sorted[hi].To
		if counts[r] == 0 {
			distinct++
		}
		counts[r]++
		for sorted[hi].Timestamp.Sub(sorted[lo].Timestamp) > window {
			lr := sorted[lo].To
			counts[lr]--
			if counts[lr] == 0 {
				distinct--
			}
			lo++
		}
		if distinct > max {
			max = distinct
		}
	}
	return max
}

// countEOAs verifies, in bounded parallel batches, how many of receivers
// have no code at in.BlockNumber (i.e. are externally owned accounts),
// per spec.md §4.D module 2.
func countEOAs(ctx context.Context, in ScanInput, receivers map[string]struct{}) int {
	maxInFlight := in.Config.ProviderConcurrency
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	sem := make(chan struct{}, maxInFlight)
	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0

	for receiver := range receivers {
		receiver := receiver
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			v, err := memoizer.Memo(in.Memoizer, in.Token.Address, "codeAt", []memoizer.Arg{receiver}, func() (int, error) {
				return in.Provider.CodeAt(ctx, common.HexToAddress(receiver), in.BlockNumber)
			})
			if err != nil {
				return
			}
			if v == 0 {
				mu.Lock()
				count++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return count
}
