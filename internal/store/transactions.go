package store

import (
	"time"

	"gorm.io/gorm"

	"tokenwatch/internal/model"
)

// Transaction mirrors model.Transaction with resolved address strings.
type Transaction struct {
	ID             uint64
	Hash           string
	From           string
	To             string // model.AbsentAddress when the on-chain recipient is absent
	Selector       string
	BlockNumber    uint64
	BlockTimestamp time.Time
	TxIndex        int
}

// AddTransaction inserts tx, resolving "to" to model.AbsentAddress when
// absent so that joins can use plain equality. Idempotent on hash: returns
// the id of the existing row if present.
func (s *Store) AddTransaction(tx Transaction) (uint64, error) {
	var id uint64
	err := s.withWrite(func(db *gorm.DB) error {
		var existing model.Transaction
		if err := db.Where("hash = ?", tx.Hash).First(&existing).Error; err == nil {
			id = existing.ID
			return nil
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		to := tx.To
		if to == "" {
			to = model.AbsentAddress
		}
		fromID, err := resolveAddress(db, tx.From)
		if err != nil {
			return err
		}
		toID, err := resolveAddress(db, to)
		if err != nil {
			return err
		}
		row := model.Transaction{
			Hash:           tx.Hash,
			FromAddressID:  fromID,
			ToAddressID:    toID,
			Selector:       tx.Selector,
			BlockNumber:    tx.BlockNumber,
			BlockTimestamp: tx.BlockTimestamp,
			TxIndex:        tx.TxIndex,
		}
		if err := db.Create(&row).Error; err != nil {
			return err
		}
		id = row.ID
		return nil
	})
	return id, err
}

// resolveTransactionID resolves either a pre-known transaction id or a hash
// to an id, inserting a placeholder-free lookup; events call this at
// insert time per spec.md §4.A.
func (s *Store) resolveTransactionID(db *gorm.DB, id uint64, hash string) (uint64, error) {
	if id != 0 {
		return id, nil
	}
	var t model.Transaction
	if err := db.Where("hash = ?", hash).First(&t).Error; err != nil {
		return 0, err
	}
	return t.ID, nil
}

// txByID hydrates a Transaction by id, used by read-side queries.
func (s *Store) txByID(id uint64) (Transaction, error) {
	var t model.Transaction
	if err := s.db.First(&t, id).Error; err != nil {
		return Transaction{}, err
	}
	from, err := s.AddressHex(t.FromAddressID)
	if err != nil {
		return Transaction{}, err
	}
	to, err := s.AddressHex(t.ToAddressID)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID: t.ID, Hash: t.Hash, From: from, To: to, Selector: t.Selector,
		BlockNumber: t.BlockNumber, BlockTimestamp: t.BlockTimestamp, TxIndex: t.TxIndex,
	}, nil
}

// Transactions returns transactions addressed to "to" (or the absent
// sentinel), ordered by (block number, tx index), per spec.md §4.A.
func (s *Store) Transactions(to string) ([]Transaction, error) {
	if to == "" {
		to = model.AbsentAddress
	}
	toID, err := s.ResolveAddressID(nil, to)
	if err != nil {
		return nil, err
	}
	var rows []model.Transaction
	if err := s.db.Where("to_address_id = ?", toID).
		Order("block_number asc, tx_index asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Transaction, 0, len(rows))
	for _, r := range rows {
		t, err := s.hydrate(r)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) hydrate(r model.Transaction) (Transaction, error) {
	from, err := s.AddressHex(r.FromAddressID)
	if err != nil {
		return Transaction{}, err
	}
	to, err := s.AddressHex(r.ToAddressID)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID: r.ID, Hash: r.Hash, From: from, To: to, Selector: r.Selector,
		BlockNumber: r.BlockNumber, BlockTimestamp: r.BlockTimestamp, TxIndex: r.TxIndex,
	}, nil
}

// TransactionByHash returns a transaction by hash; ok is false when no row
// has that hash.
func (s *Store) TransactionByHash(hash string) (Transaction, bool, error) {
	var t model.Transaction
	if err := s.db.Where("hash = ?", hash).First(&t).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return Transaction{}, false, nil
		}
		return Transaction{}, false, err
	}
	tx, err := s.hydrate(t)
	return tx, true, err
}
