package store

import (
	"fmt"

	"gorm.io/gorm"

	"tokenwatch/internal/model"
)

// EventRef identifies the transaction an event belongs to, either by a
// resolved id or (if zero) by hash, resolved at insert time per spec.md
// §4.A. TxIndex/BlockNumber are accepted but not stored on the event row;
// the typed query methods order results by the referenced Transaction's
// block number and tx index.
type EventRef struct {
	TransactionID uint64
	TransactionHash string
	LogIndex        int
	BlockNumber     uint64
	TxIndex         int
}

// Event is the hydrated, address-resolved form of any typed event variant
// returned by the read side, ordered by (block number, tx index, log index).
type Event struct {
	Contract    string
	Transaction Transaction
	LogIndex    int
	Kind        string
	From        string
	To          string
	Owner       string
	Spender     string
	Operator    string
	Approved    bool
	Value       string
	TokenID     string
	TokenIDs    []string
	Values      []string
}

// contractID resolves address for the read-side query methods below. It
// never inserts and never takes writeMu: an address with no row simply has
// no events, so the caller's "contract_id = ?" query returns zero rows.
func (s *Store) contractID(address string) (uint64, error) {
	id, ok, err := s.addressID(address)
	if err != nil || !ok {
		return 0, err
	}
	return id, nil
}

// AddERC20Transfer inserts a Transfer event for an ERC-20 contract.
func (s *Store) AddERC20Transfer(contract string, ref EventRef, from, to, value string) error {
	return s.withWrite(func(db *gorm.DB) error {
		contractID, fromID, toID, txID, err := s.prepareEvent(db, contract, ref, from, to)
		if err != nil {
			return err
		}
		row := model.ERC20Transfer{
			EventCommon:   model.EventCommon{ContractID: contractID, TransactionID: txID, LogIndex: ref.LogIndex},
			FromAddressID: fromID, ToAddressID: toID, Value: value,
		}
		return db.Create(&row).Error
	})
}

// AddERC20Approval inserts an Approval event for an ERC-20 contract.
func (s *Store) AddERC20Approval(contract string, ref EventRef, owner, spender, value string) error {
	return s.withWrite(func(db *gorm.DB) error {
		contractID, ownerID, spenderID, txID, err := s.prepareEvent(db, contract, ref, owner, spender)
		if err != nil {
			return err
		}
		row := model.ERC20Approval{
			EventCommon:      model.EventCommon{ContractID: contractID, TransactionID: txID, LogIndex: ref.LogIndex},
			OwnerAddressID:   ownerID,
			SpenderAddressID: spenderID,
			Value:            value,
		}
		return db.Create(&row).Error
	})
}

// AddERC721Transfer inserts a Transfer event for an ERC-721 contract.
func (s *Store) AddERC721Transfer(contract string, ref EventRef, from, to, tokenID string) error {
	return s.withWrite(func(db *gorm.DB) error {
		contractID, fromID, toID, txID, err := s.prepareEvent(db, contract, ref, from, to)
		if err != nil {
			return err
		}
		row := model.ERC721Transfer{
			EventCommon:   model.EventCommon{ContractID: contractID, TransactionID: txID, LogIndex: ref.LogIndex},
			FromAddressID: fromID, ToAddressID: toID, TokenID: tokenID,
		}
		return db.Create(&row).Error
	})
}

// AddERC721Approval inserts an Approval event for an ERC-721 contract.
func (s *Store) AddERC721Approval(contract string, ref EventRef, owner, spender, tokenID string) error {
	return s.withWrite(func(db *gorm.DB) error {
		contractID, ownerID, spenderID, txID, err := s.prepareEvent(db, contract, ref, owner, spender)
		if err != nil {
			return err
		}
		row := model.ERC721Approval{
			EventCommon:      model.EventCommon{ContractID: contractID, TransactionID: txID, LogIndex: ref.LogIndex},
			OwnerAddressID:   ownerID,
			SpenderAddressID: spenderID,
			TokenID:          tokenID,
		}
		return db.Create(&row).Error
	})
}

// AddERC721ApprovalForAll inserts an ApprovalForAll event.
func (s *Store) AddERC721ApprovalForAll(contract string, ref EventRef, owner, operator string, approved bool) error {
	return s.withWrite(func(db *gorm.DB) error {
		contractID, ownerID, operatorID, txID, err := s.prepareEvent(db, contract, ref, owner, operator)
		if err != nil {
			return err
		}
		row := model.ERC721ApprovalForAll{
			EventCommon:       model.EventCommon{ContractID: contractID, TransactionID: txID, LogIndex: ref.LogIndex},
			OwnerAddressID:    ownerID,
			OperatorAddressID: operatorID,
			Approved:          approved,
		}
		return db.Create(&row).Error
	})
}

// AddERC1155TransferSingle inserts a TransferSingle event.
func (s *Store) AddERC1155TransferSingle(contract string, ref EventRef, operator, from, to, tokenID, value string) error {
	return s.withWrite(func(db *gorm.DB) error {
		contractID, fromID, toID, txID, err := s.prepareEvent(db, contract, ref, from, to)
		if err != nil {
			return err
		}
		operatorID, err := resolveAddress(db, operator)
		if err != nil {
			return err
		}
		row := model.ERC1155TransferSingle{
			EventCommon:       model.EventCommon{ContractID: contractID, TransactionID: txID, LogIndex: ref.LogIndex},
			OperatorAddressID: operatorID, FromAddressID: fromID, ToAddressID: toID,
			TokenID: tokenID, Value: value,
		}
		return db.Create(&row).Error
	})
}

// AddERC1155TransferBatch inserts a TransferBatch event.
func (s *Store) AddERC1155TransferBatch(contract string, ref EventRef, operator, from, to string, tokenIDs, values []string) error {
	return s.withWrite(func(db *gorm.DB) error {
		contractID, fromID, toID, txID, err := s.prepareEvent(db, contract, ref, from, to)
		if err != nil {
			return err
		}
		operatorID, err := resolveAddress(db, operator)
		if err != nil {
			return err
		}
		row := model.ERC1155TransferBatch{
			EventCommon:       model.EventCommon{ContractID: contractID, TransactionID: txID, LogIndex: ref.LogIndex},
			OperatorAddressID: operatorID, FromAddressID: fromID, ToAddressID: toID,
			TokenIDs: model.EncodeDecimalArray(tokenIDs),
			Values:   model.EncodeDecimalArray(values),
		}
		return db.Create(&row).Error
	})
}

// AddERC1155ApprovalForAll inserts an ApprovalForAll event.
func (s *Store) AddERC1155ApprovalForAll(contract string, ref EventRef, owner, operator string, approved bool) error {
	return s.withWrite(func(db *gorm.DB) error {
		contractID, ownerID, operatorID, txID, err := s.prepareEvent(db, contract, ref, owner, operator)
		if err != nil {
			return err
		}
		row := model.ERC1155ApprovalForAll{
			EventCommon:       model.EventCommon{ContractID: contractID, TransactionID: txID, LogIndex: ref.LogIndex},
			OwnerAddressID:    ownerID,
			OperatorAddressID: operatorID,
			Approved:          approved,
		}
		return db.Create(&row).Error
	})
}

// prepareEvent resolves the contract id, the two participant addresses and
// the transaction reference shared by every Add*Event method.
func (s *Store) prepareEvent(db *gorm.DB, contract string, ref EventRef, a, b string) (contractID, aID, bID, txID uint64, err error) {
	contractID, err = resolveAddress(db, contract)
	if err != nil {
		return
	}
	aID, err = resolveAddress(db, a)
	if err != nil {
		return
	}
	bID, err = resolveAddress(db, b)
	if err != nil {
		return
	}
	txID, err = s.resolveTransactionID(db, ref.TransactionID, ref.TransactionHash)
	if err != nil {
		err = fmt.Errorf("resolve transaction for event: %w", err)
		return
	}
	return
}

// Erc20Transfer returns every Transfer event for contract, ordered by
// (block number, tx index, log index).
func (s *Store) Erc20Transfer(contract string) ([]Event, error) {
	contractID, err := s.contractID(contract)
	if err != nil {
		return nil, err
	}
	var rows []model.ERC20Transfer
	if err := s.db.Where("contract_id = ?", contractID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		tx, err := s.txByID(r.TransactionID)
		if err != nil {
			continue
		}
		from, _ := s.AddressHex(r.FromAddressID)
		to, _ := s.AddressHex(r.ToAddressID)
		out = append(out, Event{Contract: contract, Transaction: tx, LogIndex: r.LogIndex, Kind: "erc20Transfer", From: from, To: to, Value: r.Value})
	}
	return sortedByOrder(out), nil
}

// Erc20Approval returns every Approval event for contract.
func (s *Store) Erc20Approval(contract string) ([]Event, error) {
	contractID, err := s.contractID(contract)
	if err != nil {
		return nil, err
	}
	var rows []model.ERC20Approval
	if err := s.db.Where("contract_id = ?", contractID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		tx, err := s.txByID(r.TransactionID)
		if err != nil {
			continue
		}
		owner, _ := s.AddressHex(r.OwnerAddressID)
		spender, _ := s.AddressHex(r.SpenderAddressID)
		out = append(out, Event{Contract: contract, Transaction: tx, LogIndex: r.LogIndex, Kind: "erc20Approval", Owner: owner, Spender: spender, Value: r.Value})
	}
	return sortedByOrder(out), nil
}

// Erc721Transfer returns every Transfer event for contract.
func (s *Store) Erc721Transfer(contract string) ([]Event, error) {
	contractID, err := s.contractID(contract)
	if err != nil {
		return nil, err
	}
	var rows []model.ERC721Transfer
	if err := s.db.Where("contract_id = ?", contractID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		tx, err := s.txByID(r.TransactionID)
		if err != nil {
			continue
		}
		from, _ := s.AddressHex(r.FromAddressID)
		to, _ := s.AddressHex(r.ToAddressID)
		out = append(out, Event{Contract: contract, Transaction: tx, LogIndex: r.LogIndex, Kind: "erc721Transfer", From: from, To: to, TokenID: r.TokenID})
	}
	return sortedByOrder(out), nil
}

// Erc721Approval returns every Approval event for contract.
func (s *Store) Erc721Approval(contract string) ([]Event, error) {
	contractID, err := s.contractID(contract)
	if err != nil {
		return nil, err
	}
	var rows []model.ERC721Approval
	if err := s.db.Where("contract_id = ?", contractID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		tx, err := s.txByID(r.TransactionID)
		if err != nil {
			continue
		}
		owner, _ := s.AddressHex(r.OwnerAddressID)
		spender, _ := s.AddressHex(r.SpenderAddressID)
		out = append(out, Event{Contract: contract, Transaction: tx, LogIndex: r.LogIndex, Kind: "erc721Approval", Owner: owner, Spender: spender, TokenID: r.TokenID})
	}
	return sortedByOrder(out), nil
}

// Erc721ApprovalForAll returns every ApprovalForAll event for contract.
func (s *Store) Erc721ApprovalForAll(contract string) ([]Event, error) {
	contractID, err := s.contractID(contract)
	if err != nil {
		return nil, err
	}
	var rows []model.ERC721ApprovalForAll
	if err := s.db.Where("contract_id = ?", contractID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		tx, err := s.txByID(r.TransactionID)
		if err != nil {
			continue
		}
		owner, _ := s.AddressHex(r.OwnerAddressID)
		operator, _ := s.AddressHex(r.OperatorAddressID)
		out = append(out, Event{Contract: contract, Transaction: tx, LogIndex: r.LogIndex, Kind: "erc721ApprovalForAll", Owner: owner, Operator: operator, Approved: r.Approved})
	}
	return sortedByOrder(out), nil
}

// Erc1155TransferSingle returns every TransferSingle event for contract.
func (s *Store) Erc1155TransferSingle(contract string) ([]Event, error) {
	contractID, err := s.contractID(contract)
	if err != nil {
		return nil, err
	}
	var rows []model.ERC1155TransferSingle
	if err := s.db.Where("contract_id = ?", contractID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		tx, err := s.txByID(r.TransactionID)
		if err != nil {
			continue
		}
		operator, _ := s.AddressHex(r.OperatorAddressID)
		from, _ := s.AddressHex(r.FromAddressID)
		to, _ := s.AddressHex(r.ToAddressID)
		out = append(out, Event{Contract: contract, Transaction: tx, LogIndex: r.LogIndex, Kind: "erc1155TransferSingle", Operator: operator, From: from, To: to, TokenID: r.TokenID, Value: r.Value})
	}
	return sortedByOrder(out), nil
}

// Erc1155TransferBatch returns every TransferBatch event for contract.
func (s *Store) Erc1155TransferBatch(contract string) ([]Event, error) {
	contractID, err := s.contractID(contract)
	if err != nil {
		return nil, err
	}
	var rows []model.ERC1155TransferBatch
	if err := s.db.Where("contract_id = ?", contractID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		tx, err := s.txByID(r.TransactionID)
		if err != nil {
			continue
		}
		operator, _ := s.AddressHex(r.OperatorAddressID)
		from, _ := s.AddressHex(r.FromAddressID)
		to, _ := s.AddressHex(r.ToAddressID)
		out = append(out, Event{
			Contract: contract, Transaction: tx, LogIndex: r.LogIndex, Kind: "erc1155TransferBatch",
			Operator: operator, From: from, To: to,
			TokenIDs: model.DecodeDecimalArray(r.TokenIDs), Values: model.DecodeDecimalArray(r.Values),
		})
	}
	return sortedByOrder(out), nil
}

// Erc1155ApprovalForAll returns every ApprovalForAll event for contract.
func (s *Store) Erc1155ApprovalForAll(contract string) ([]Event, error) {
	contractID, err := s.contractID(contract)
	if err != nil {
		return nil, err
	}
	var rows []model.ERC1155ApprovalForAll
	if err := s.db.Where("contract_id = ?", contractID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		tx, err := s.txByID(r.TransactionID)
		if err != nil {
			continue
		}
		owner, _ := s.AddressHex(r.OwnerAddressID)
		operator, _ := s.AddressHex(r.OperatorAddressID)
		out = append(out, Event{Contract: contract, Transaction: tx, LogIndex: r.LogIndex, Kind: "erc1155ApprovalForAll", Owner: owner, Operator: operator, Approved: r.Approved})
	}
	return sortedByOrder(out), nil
}

func sortedByOrder(events []Event) []Event {
	// insertion sort is fine: per-token event volumes are bounded by the
	// observation window (spec.md §6 observation time / tick interval).
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && eventOrderKey(events[j]).Less(eventOrderKey(events[j-1])); j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
	return events
}

func eventOrderKey(e Event) model.OrderKey {
	return model.OrderKey{BlockNumber: e.Transaction.BlockNumber, TxIndex: e.Transaction.TxIndex, LogIndex: e.LogIndex}
}
