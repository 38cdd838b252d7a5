// Package ingress decodes raw chain-feed transaction events into the
// store's typed shapes, per spec.md §4.G: identify newly deployed token
// contracts, then decode each log against the standard its emitter is
// known to implement.
package ingress

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"tokenwatch/internal/chain"
	"tokenwatch/internal/model"
	"tokenwatch/internal/orchestrator"
	"tokenwatch/internal/store"
)

// Log is one event log entry as carried by a TxEvent.
type Log struct {
	Address  string
	Topics   []string
	Data     []byte
	LogIndex int
}

// CreatedContract is one contract-creation trace output inside a TxEvent.
type CreatedContract struct {
	Address string
}

// TxEvent is the chain feed's per-transaction record, per spec.md §6.
type TxEvent struct {
	Hash             string
	From             string
	To               string // empty for contract creation
	Selector         string
	BlockNumber      uint64
	BlockTimestamp   time.Time
	TxIndex          int
	Logs             []Log
	CreatedContracts []CreatedContract
}

var (
	topicTransfer       = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	topicApproval       = crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))
	topicApprovalForAll = crypto.Keccak256Hash([]byte("ApprovalForAll(address,address,bool)"))
	topicTransferSingle = crypto.Keccak256Hash([]byte("TransferSingle(address,address,address,uint256,uint256)"))
	topicTransferBatch  = crypto.Keccak256Hash([]byte("TransferBatch(address,address,address,uint256[],uint256[])"))

	uint256Ty, _    = abi.NewType("uint256", "", nil)
	uint256ArrTy, _ = abi.NewType("uint256[]", "", nil)

	argsSingleUint = abi.Arguments{{Type: uint256Ty}}
	argsUintPair   = abi.Arguments{{Type: uint256Ty}, {Type: uint256Ty}}
	argsUintArrs   = abi.Arguments{{Type: uint256ArrTy}, {Type: uint256ArrTy}}
)

// Adapter routes transaction events into the watched-token store and
// orchestrator per spec.md §4.G.
type Adapter struct {
	Store        *store.Store
	Orchestrator *orchestrator.Orchestrator
	Identifier   chain.TypeIdentifier
	Log          *logrus.Entry
}

// New constructs an Adapter.
func New(s *store.Store, o *orchestrator.Orchestrator, id chain.TypeIdentifier, log *logrus.Entry) *Adapter {
	return &Adapter{Store: s, Orchestrator: o, Identifier: id, Log: log}
}

// HandleTx processes one chain-feed transaction event: it identifies any
// newly deployed token contract, records the transaction if it or one of
// its logs touches a watched token, and decodes each log against the
// standard its emitter implements.
func (a *Adapter) HandleTx(ctx context.Context, ev TxEvent) error {
	for _, created := range ev.CreatedContracts {
		standard, ok, err := a.Identifier.IdentifyStandard(ctx, common.HexToAddress(created.Address), ev.BlockNumber)
		if err != nil {
			if a.Log != nil {
				a.Log.WithError(err).WithField("address", created.Address).Warn("contract type identification failed")
			}
			continue
		}
		if !ok {
			continue
		}
		if err := a.Orchestrator.OnNewToken(store.TokenContract{
			Address:         model.NormalizeAddress(created.Address),
			DeployerAddress: model.NormalizeAddress(ev.From),
			DeploymentBlock: ev.BlockNumber,
			DeploymentTime:  ev.BlockTimestamp,
			Standard:        model.TokenStandard(standard),
		}); err != nil {
			return err
		}
	}

	touches, err := a.touchesWatchedToken(ev)
	if err != nil {
		return err
	}
	if !touches {
		return nil
	}

	to := ev.To
	if to == "" {
		to = model.AbsentAddress
	}
	if err := a.Orchestrator.OnTransaction(store.Transaction{
		Hash: ev.Hash, From: model.NormalizeAddress(ev.From), To: model.NormalizeAddress(to),
		Selector: ev.Selector, BlockNumber: ev.BlockNumber, BlockTimestamp: ev.BlockTimestamp, TxIndex: ev.TxIndex,
	}); err != nil {
		return err
	}

	for _, l := range ev.Logs {
		a.decodeLog(ev, l)
	}
	return nil
}

func (a *Adapter) touchesWatchedToken(ev TxEvent) (bool, error) {
	if ev.To != "" {
		if _, ok, err := a.Store.Token(model.NormalizeAddress(ev.To)); err != nil {
			return false, err
		} else if ok {
			return true, nil
		}
	}
	for _, l := range ev.Logs {
		_, ok, err := a.Store.Token(model.NormalizeAddress(l.Address))
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// decodeLog attempts to decode l against each known standard's event
// signatures in turn; unknown logs are ignored silently.
func (a *Adapter) decodeLog(ev TxEvent, l Log) {
	token, ok, err := a.Store.Token(model.NormalizeAddress(l.Address))
	if err != nil || !ok {
		return // log's emitter isn't a watched token
	}
	if len(l.Topics) == 0 {
		return
	}
	ref := store.EventRef{TransactionHash: ev.Hash, LogIndex: l.LogIndex, BlockNumber: ev.BlockNumber, TxIndex: ev.TxIndex}

	switch common.HexToHash(l.Topics[0]) {
	case topicTransfer:
		a.decodeTransfer(l, ref, *token)
	case topicApproval:
		a.decodeApproval(l, ref, *token)
	case topicApprovalForAll:
		a.decodeApprovalForAll(l, ref, *token)
	case topicTransferSingle:
		a.decodeTransferSingle(l, ref, *token)
	case topicTransferBatch:
		a.decodeTransferBatch(l, ref, *token)
	}
}

func addrFromTopic(topic string) string {
	return model.NormalizeAddress(common.BytesToAddress(common.HexToHash(topic).Bytes()).Hex())
}

func (a *Adapter) decodeTransfer(l Log, ref store.EventRef, token store.TokenContract) {
	if len(l.Topics) < 3 {
		return
	}
	from, to := addrFromTopic(l.Topics[1]), addrFromTopic(l.Topics[2])
	switch token.Standard {
	case model.StandardERC20:
		values, err := argsSingleUint.Unpack(l.Data)
		if err != nil || len(values) != 1 {
			return
		}
		_ = a.Store.AddERC20Transfer(token.Address, ref, from, to, values[0].(*big.Int).String())
	case model.StandardERC721:
		if len(l.Topics) < 4 {
			return
		}
		tokenID := new(big.Int).SetBytes(common.HexToHash(l.Topics[3]).Bytes())
		_ = a.Store.AddERC721Transfer(token.Address, ref, from, to, tokenID.String())
	}
}

func (a *Adapter) decodeApproval(l Log, ref store.EventRef, token store.TokenContract) {
	if len(l.Topics) < 3 {
		return
	}
	owner, spender := addrFromTopic(l.Topics[1]), addrFromTopic(l.Topics[2])
	switch token.Standard {
	case model.StandardERC20:
		values, err := argsSingleUint.Unpack(l.Data)
		if err != nil || len(values) != 1 {
			return
		}
		_ = a.Store.AddERC20Approval(token.Address, ref, owner, spender, values[0].(*big.Int).String())
	case model.StandardERC721:
		if len(l.Topics) < 4 {
			return
		}
		tokenID := new(big.Int).SetBytes(common.HexToHash(l.Topics[3]).Bytes())
		_ = a.Store.AddERC721Approval(token.Address, ref, owner, spender, tokenID.String())
	}
}

func (a *Adapter) decodeApprovalForAll(l Log, ref store.EventRef, token store.TokenContract) {
	if len(l.Topics) < 3 {
		return
	}
	owner, operator := addrFromTopic(l.Topics[1]), addrFromTopic(l.Topics[2])
	approved := len(l.Data) > 0 && l.Data[len(l.Data)-1] != 0

	switch token.Standard {
	case model.StandardERC721:
		_ = a.Store.AddERC721ApprovalForAll(token.Address, ref, owner, operator, approved)
	case model.StandardERC1155:
		_ = a.Store.AddERC1155ApprovalForAll(token.Address, ref, owner, operator, approved)
	}
}

func (a *Adapter) decodeTransferSingle(l Log, ref store.EventRef, token store.TokenContract) {
	if token.Standard != model.StandardERC1155 || len(l.Topics) < 4 {
		return
	}
	operator, from, to := addrFromTopic(l.Topics[1]), addrFromTopic(l.Topics[2]), addrFromTopic(l.Topics[3])
	values, err := argsUintPair.Unpack(l.Data)
	if err != nil || len(values) != 2 {
		return
	}
	id, value := values[0].(*big.Int), values[1].(*big.Int)
	_ = a.Store.AddERC1155TransferSingle(token.Address, ref, operator, from, to, id.String(), value.String())
}

func (a *Adapter) decodeTransferBatch(l Log, ref store.EventRef, token store.TokenContract) {
	if token.Standard != model.StandardERC1155 || len(l.Topics) < 4 {
		return
	}
	operator, from, to := addrFromTopic(l.Topics[1]), addrFromTopic(l.Topics[2]), addrFromTopic(l.Topics[3])
	values, err := argsUintArrs.Unpack(l.Data)
	if err != nil || len(values) != 2 {
		return
	}
	ids, amounts := values[0].([]*big.Int), values[1].([]*big.Int)
	if len(ids) != len(amounts) {
		return
	}
	idStrs := make([]string, len(ids))
	amountStrs := make([]string, len(amounts))
	for i := range ids {
		idStrs[i] = ids[i].String()
		amountStrs[i] = amounts[i].String()
	}
	_ = a.Store.AddERC1155TransferBatch(token.Address, ref, operator, from, to, idStrs, amountStrs)
}
