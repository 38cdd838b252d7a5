package main

import (
	"context"
	"encoding/hex"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"tokenwatch/internal/ingress"
)

// pollChainFeed polls the node for new blocks starting at fromBlock and
// hands each transaction to adapter.HandleTx, per spec.md §6's "inputs
// from chain feed" shape. A real deployment would subscribe to new heads
// over a websocket endpoint; this CLI polls so it also works against a
// plain HTTP RPC URL. head is updated to the latest block number observed
// so the ticker loop can thread it into Orchestrator.Tick.
func pollChainFeed(ctx context.Context, client *ethclient.Client, adapter *ingress.Adapter, fromBlock uint64, pollInterval time.Duration, head *atomic.Uint64) {
	next := fromBlock
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			latest, err := client.BlockNumber(ctx)
			if err != nil {
				continue
			}
			head.Store(latest)
			for ; next <= latest; next++ {
				block, err := client.BlockByNumber(ctx, new(big.Int).SetUint64(next))
				if err != nil {
					break
				}
				processBlock(ctx, client, adapter, block)
			}
		}
	}
}

func processBlock(ctx context.Context, client *ethclient.Client, adapter *ingress.Adapter, block *types.Block) {
	for i, tx := range block.Transactions() {
		receipt, err := client.TransactionReceipt(ctx, tx.Hash())
		if err != nil {
			continue
		}
		from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
		if err != nil {
			continue
		}

		ev := ingress.TxEvent{
			Hash:           tx.Hash().Hex(),
			From:           from.Hex(),
			BlockNumber:    block.NumberU64(),
			BlockTimestamp: time.Unix(int64(block.Time()), 0),
			TxIndex:        i,
		}
		if tx.To() != nil {
			ev.To = tx.To().Hex()
		}
		if data := tx.Data(); len(data) >= 4 {
			ev.Selector = "0x" + hex.EncodeToString(data[:4])
		}
		if tx.To() == nil && receipt.ContractAddress != (common.Address{}) {
			ev.CreatedContracts = append(ev.CreatedContracts, ingress.CreatedContract{Address: receipt.ContractAddress.Hex()})
		}
		for _, l := range receipt.Logs {
			topics := make([]string, len(l.Topics))
			for j, t := range l.Topics {
				topics[j] = t.Hex()
			}
			ev.Logs = append(ev.Logs, ingress.Log{
				Address: l.Address.Hex(), Topics: topics, Data: l.Data, LogIndex: int(l.Index),
			})
		}

		_ = adapter.HandleTx(ctx, ev)
	}
}
