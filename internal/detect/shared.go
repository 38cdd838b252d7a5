package detect

import (
	"math/big"
	"sort"
	"time"

	"tokenwatch/internal/model"
)

// TransferRecord is a standard-agnostic (sender, receiver, tx, timestamp,
// value) view over the three transfer-shaped event kinds, built by
// transferRecords for each module that reads it (Airdrop,
// LowActivityAfterAirdrop, SleepMint).
type TransferRecord struct {
	TxHash    string
	TxFrom    string
	From      string
	To        string
	Value     string
	Timestamp time.Time
	Block     uint64
	TxIndex   int
	LogIndex  int
}

// transferRecords collects every transfer-shaped event for token in its
// standard, skipping zero-value ERC-20 transfers per spec.md §4.D module 2.
func transferRecords(in ScanInput) ([]TransferRecord, error) {
	var out []TransferRecord
	switch in.Token.Standard {
	case "ERC20":
		events, err := in.Store.Erc20Transfer(in.Token.Address)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			if isZeroDecimal(e.Value) {
				continue
			}
			out = append(out, TransferRecord{
				TxHash: e.Transaction.Hash, TxFrom: e.Transaction.From,
				From: e.From, To: e.To, Value: e.Value,
				Timestamp: e.Transaction.BlockTimestamp, Block: e.Transaction.BlockNumber,
				TxIndex: e.Transaction.TxIndex, LogIndex: e.LogIndex,
			})
		}
	case "ERC721":
		events, err := in.Store.Erc721Transfer(in.Token.Address)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			out = append(out, TransferRecord{
				TxHash: e.Transaction.Hash, TxFrom: e.Transaction.From,
				From: e.From, To: e.To, Value: "1",
				Timestamp: e.Transaction.BlockTimestamp, Block: e.Transaction.BlockNumber,
				TxIndex: e.Transaction.TxIndex, LogIndex: e.LogIndex,
			})
		}
	case "ERC1155":
		singles, err := in.Store.Erc1155TransferSingle(in.Token.Address)
		if err != nil {
			return nil, err
		}
		for _, e := range singles {
			out = append(out, TransferRecord{
				TxHash: e.Transaction.Hash, TxFrom: e.Transaction.From,
				From: e.From, To: e.To, Value: e.Value,
				Timestamp: e.Transaction.BlockTimestamp, Block: e.Transaction.BlockNumber,
				TxIndex: e.Transaction.TxIndex, LogIndex: e.LogIndex,
			})
		}
		batches, err := in.Store.Erc1155TransferBatch(in.Token.Address)
		if err != nil {
			return nil, err
		}
		for _, e := range batches {
			sum := new(big.Int)
			for _, v := range e.Values {
				sum.Add(sum, model.BigFromDecimalString(v))
			}
			out = append(out, TransferRecord{
				TxHash: e.Transaction.Hash, TxFrom: e.Transaction.From,
				From: e.From, To: e.To, Value: sum.String(),
				Timestamp: e.Transaction.BlockTimestamp, Block: e.Transaction.BlockNumber,
				TxIndex: e.Transaction.TxIndex, LogIndex: e.LogIndex,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Block != out[j].Block {
			return out[i].Block < out[j].Block
		}
		if out[i].TxIndex != out[j].TxIndex {
			return out[i].TxIndex < out[j].TxIndex
		}
		return out[i].LogIndex < out[j].LogIndex
	})
	return out, nil
}

func isZeroDecimal(decimal string) bool {
	for _, c := range decimal {
		if c != '0' {
			return false
		}
	}
	return decimal != ""
}

// AirdropMetadata is module 2's externalized metadata shape, reused by
// modules 3/4/9/12/13 which read Airdrop's context entry.
type AirdropMetadata struct {
	Senders   []string
	Receivers []string
	TxHashes  []string
	Transfers []AirdropTransfer
	StartTime time.Time
	EndTime   time.Time
}

type AirdropTransfer struct {
	Receiver  string
	Timestamp time.Time
}
