// Package model defines the entities persisted by the event store:
// addresses, token contracts, transactions and the per-standard event
// variants described by the data model.
package model

import (
	"math/big"
	"strings"
	"time"
)

// AbsentAddress is the sentinel string the store uses in place of a missing
// transaction recipient (contract-creation transactions), so joins and
// indexes can rely on plain equality instead of three-valued NULL logic.
const AbsentAddress = "0xabsent000000000000000000000000000000000"

// TokenStandard enumerates the contract standards the ingress adapter and
// detector battery understand.
type TokenStandard string

const (
	StandardERC20   TokenStandard = "ERC20"
	StandardERC721  TokenStandard = "ERC721"
	StandardERC1155 TokenStandard = "ERC1155"
)

// NormalizeAddress lower-cases a hex address for canonical storage/lookup.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Address is a de-duplicated, canonical 20-byte hex address row.
type Address struct {
	ID  uint64 `gorm:"primaryKey"`
	Hex string `gorm:"uniqueIndex;size:64;not null"`
}

// TokenContract is a recognized ERC20/721/1155 deployment. The primary key
// equals the address id: a 1:1 relationship with Address.
type TokenContract struct {
	AddressID         uint64        `gorm:"primaryKey;column:address_id"`
	Address           string        `gorm:"-"`
	DeployerAddressID uint64        `gorm:"column:deployer_address_id;not null;index"`
	DeployerAddress   string        `gorm:"-"`
	DeploymentBlock   uint64        `gorm:"not null"`
	DeploymentTime    time.Time     `gorm:"not null"`
	Standard          TokenStandard `gorm:"size:16;not null"`
}

// Transaction is inserted once per hash; subsequent inserts with the same
// hash resolve to the existing row id.
type Transaction struct {
	ID             uint64 `gorm:"primaryKey"`
	Hash           string `gorm:"uniqueIndex;size:80;not null"`
	FromAddressID  uint64 `gorm:"not null;index"`
	ToAddressID    uint64 `gorm:"not null;index"` // resolves to AbsentAddress row when recipient is absent
	Selector       string `gorm:"size:10"`
	BlockNumber    uint64 `gorm:"not null;index"`
	BlockTimestamp time.Time
	TxIndex        int `gorm:"not null"`
}

// EventCommon carries the fields every typed event shares.
type EventCommon struct {
	ID            uint64 `gorm:"primaryKey"`
	ContractID    uint64 `gorm:"not null;index"`
	TransactionID uint64 `gorm:"not null;index"`
	LogIndex      int    `gorm:"not null"`
}

// OrderKey is the (blockNumber, txIndex, logIndex) total order spec.md §3
// requires within a single contract's event stream.
type OrderKey struct {
	BlockNumber uint64
	TxIndex     int
	LogIndex    int
}

func (o OrderKey) Less(other OrderKey) bool {
	if o.BlockNumber != other.BlockNumber {
		return o.BlockNumber < other.BlockNumber
	}
	if o.TxIndex != other.TxIndex {
		return o.TxIndex < other.TxIndex
	}
	return o.LogIndex < other.LogIndex
}

type ERC20Transfer struct {
	EventCommon
	FromAddressID uint64 `gorm:"not null;index"`
	ToAddressID   uint64 `gorm:"not null;index"`
	Value         string `gorm:"type:text;not null"` // decimal string, arbitrary precision
}

type ERC20Approval struct {
	EventCommon
	OwnerAddressID   uint64 `gorm:"not null;index"`
	SpenderAddressID uint64 `gorm:"not null;index"`
	Value            string `gorm:"type:text;not null"`
}

type ERC721Transfer struct {
	EventCommon
	FromAddressID uint64 `gorm:"not null;index"`
	ToAddressID   uint64 `gorm:"not null;index"`
	TokenID       string `gorm:"type:text;not null"`
}

type ERC721Approval struct {
	EventCommon
	OwnerAddressID   uint64 `gorm:"not null;index"`
	SpenderAddressID uint64 `gorm:"not null;index"`
	TokenID          string `gorm:"type:text;not null"`
}

type ERC721ApprovalForAll struct {
	EventCommon
	OwnerAddressID    uint64 `gorm:"not null;index"`
	OperatorAddressID uint64 `gorm:"not null;index"`
	Approved          bool
}

type ERC1155TransferSingle struct {
	EventCommon
	OperatorAddressID uint64 `gorm:"not null;index"`
	FromAddressID     uint64 `gorm:"not null;index"`
	ToAddressID       uint64 `gorm:"not null;index"`
	TokenID           string `gorm:"type:text;not null"`
	Value             string `gorm:"type:text;not null"`
}

type ERC1155TransferBatch struct {
	EventCommon
	OperatorAddressID uint64 `gorm:"not null;index"`
	FromAddressID     uint64 `gorm:"not null;index"`
	ToAddressID       uint64 `gorm:"not null;index"`
	TokenIDs          string `gorm:"type:text;not null"` // JSON array of decimal strings
	Values            string `gorm:"type:text;not null"` // JSON array of decimal strings
}

type ERC1155ApprovalForAll struct {
	EventCommon
	OwnerAddressID    uint64 `gorm:"not null;index"`
	OperatorAddressID uint64 `gorm:"not null;index"`
	Approved          bool
}

// BigFromDecimalString parses a decimal string into an arbitrary-precision
// integer, returning zero for an empty string.
func BigFromDecimalString(s string) *big.Int {
	if s == "" {
		return new(big.Int)
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return n
}

// TableName overrides let the default pluralizer match the names used by
// §A's public read contract (erc20Transfer, erc1155TransferSingle, ...).
func (ERC20Transfer) TableName() string           { return "erc20_transfers" }
func (ERC20Approval) TableName() string           { return "erc20_approvals" }
func (ERC721Transfer) TableName() string          { return "erc721_transfers" }
func (ERC721Approval) TableName() string          { return "erc721_approvals" }
func (ERC721ApprovalForAll) TableName() string    { return "erc721_approval_for_alls" }
func (ERC1155TransferSingle) TableName() string   { return "erc1155_transfer_singles" }
func (ERC1155TransferBatch) TableName() string    { return "erc1155_transfer_batches" }
func (ERC1155ApprovalForAll) TableName() string   { return "erc1155_approval_for_alls" }
