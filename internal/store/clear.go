package store

import (
	"gorm.io/gorm"

	"tokenwatch/internal/model"
)

// eventTables lists the model of every typed event table, used by
// ClearToken's cascade.
var eventTables = []any{
	&model.ERC20Transfer{}, &model.ERC20Approval{},
	&model.ERC721Transfer{}, &model.ERC721Approval{}, &model.ERC721ApprovalForAll{},
	&model.ERC1155TransferSingle{}, &model.ERC1155TransferBatch{}, &model.ERC1155ApprovalForAll{},
}

// ClearToken removes the contract row, purges its events, purges any
// transaction that becomes orphaned (referenced only by purged events) and
// purges any address referenced by no surviving row. Best-effort idempotent:
// re-invocation on an unknown address is a no-op, per spec.md §4.A.
func (s *Store) ClearToken(address string) error {
	return s.withWrite(func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			addrID, err := resolveAddress(tx, address)
			if err != nil {
				return err
			}

			var contract model.TokenContract
			err = tx.First(&contract, "address_id = ?", addrID).Error
			if err == gorm.ErrRecordNotFound {
				return nil // already absent: no-op
			}
			if err != nil {
				return err
			}

			touchedTxIDs := map[uint64]struct{}{}
			for _, table := range eventTables {
				ids, err := transactionIDsForContract(tx, table, addrID)
				if err != nil {
					return err
				}
				for _, id := range ids {
					touchedTxIDs[id] = struct{}{}
				}
				if err := tx.Where("contract_id = ?", addrID).Delete(table).Error; err != nil {
					return err
				}
			}

			if err := tx.Delete(&model.TokenContract{}, "address_id = ?", addrID).Error; err != nil {
				return err
			}

			for txID := range touchedTxIDs {
				if err := deleteTransactionIfOrphaned(tx, txID); err != nil {
					return err
				}
			}

			return gcAddresses(tx)
		})
	})
}

func transactionIDsForContract(tx *gorm.DB, table any, contractID uint64) ([]uint64, error) {
	var ids []uint64
	if err := tx.Model(table).Where("contract_id = ?", contractID).
		Distinct().Pluck("transaction_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// deleteTransactionIfOrphaned removes txID's row once no event table still
// references it.
func deleteTransactionIfOrphaned(tx *gorm.DB, txID uint64) error {
	for _, table := range eventTables {
		var count int64
		if err := tx.Model(table).Where("transaction_id = ?", txID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil // still referenced
		}
	}
	return tx.Delete(&model.Transaction{}, txID).Error
}

// gcAddresses removes any address row no longer referenced by a
// TokenContract, Transaction, or event table's address-typed columns.
func gcAddresses(tx *gorm.DB) error {
	var ids []uint64
	if err := tx.Model(&model.Address{}).Pluck("id", &ids).Error; err != nil {
		return err
	}
	for _, id := range ids {
		referenced, err := addressReferenced(tx, id)
		if err != nil {
			return err
		}
		if !referenced {
			if err := tx.Delete(&model.Address{}, id).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func addressReferenced(tx *gorm.DB, id uint64) (bool, error) {
	checks := []struct {
		table  any
		column string
	}{
		{&model.TokenContract{}, "address_id"},
		{&model.TokenContract{}, "deployer_address_id"},
		{&model.Transaction{}, "from_address_id"},
		{&model.Transaction{}, "to_address_id"},
		{&model.ERC20Transfer{}, "from_address_id"}, {&model.ERC20Transfer{}, "to_address_id"},
		{&model.ERC20Approval{}, "owner_address_id"}, {&model.ERC20Approval{}, "spender_address_id"},
		{&model.ERC721Transfer{}, "from_address_id"}, {&model.ERC721Transfer{}, "to_address_id"},
		{&model.ERC721Approval{}, "owner_address_id"}, {&model.ERC721Approval{}, "spender_address_id"},
		{&model.ERC721ApprovalForAll{}, "owner_address_id"}, {&model.ERC721ApprovalForAll{}, "operator_address_id"},
		{&model.ERC1155TransferSingle{}, "operator_address_id"}, {&model.ERC1155TransferSingle{}, "from_address_id"}, {&model.ERC1155TransferSingle{}, "to_address_id"},
		{&model.ERC1155TransferBatch{}, "operator_address_id"}, {&model.ERC1155TransferBatch{}, "from_address_id"}, {&model.ERC1155TransferBatch{}, "to_address_id"},
		{&model.ERC1155ApprovalForAll{}, "owner_address_id"}, {&model.ERC1155ApprovalForAll{}, "operator_address_id"},
	}
	for _, c := range checks {
		var count int64
		if err := tx.Model(c.table).Where(c.column+" = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}
