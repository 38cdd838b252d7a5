// Package store implements the normalized, indexed event store described
// by the data model: addresses, transactions and typed per-standard events,
// with per-contract query and purge primitives and single-writer
// serialization of mutating statements.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tokenwatch/internal/model"
)

// Store owns the gorm connection and serializes writes by holding writeMu
// for each logical write operation, mirroring the teacher's bounded single-worker dispatch
// loop (core/connection_pool.go, core/txpool_stub.go).
type Store struct {
	db  *gorm.DB
	log *logrus.Entry

	writeMu sync.Mutex // held for the duration of a logical write op
	inFlig  sync.WaitGroup
}

// Open creates (or purges, per spec.md §1 non-goals: "the store is purged
// at process start to avoid partial-state bias") a SQLite-backed store at
// path. Pass ":memory:" for an ephemeral store (tests).
func Open(path string, log *logrus.Entry) (*Store, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s := &Store{db: db, log: log}
	if err := s.purge(); err != nil {
		return nil, fmt.Errorf("purge store: %w", err)
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&model.Address{},
		&model.TokenContract{},
		&model.Transaction{},
		&model.ERC20Transfer{},
		&model.ERC20Approval{},
		&model.ERC721Transfer{},
		&model.ERC721Approval{},
		&model.ERC721ApprovalForAll{},
		&model.ERC1155TransferSingle{},
		&model.ERC1155TransferBatch{},
		&model.ERC1155ApprovalForAll{},
	)
}

// purge drops every existing table (Open then recreates them via migrate) so
// a process restart never observes partial state from a prior run.
func (s *Store) purge() error {
	tables := []any{
		&model.ERC1155ApprovalForAll{}, &model.ERC1155TransferBatch{}, &model.ERC1155TransferSingle{},
		&model.ERC721ApprovalForAll{}, &model.ERC721Approval{}, &model.ERC721Transfer{},
		&model.ERC20Approval{}, &model.ERC20Transfer{},
		&model.Transaction{}, &model.TokenContract{}, &model.Address{},
	}
	for _, t := range tables {
		if s.db.Migrator().HasTable(t) {
			if err := s.db.Migrator().DropTable(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// Begin starts an explicit ingestion transaction. Bulk inserts during a
// block's ingestion should be wrapped in Begin/Commit so partial events of
// a block are never visible to readers.
func (s *Store) Begin() *gorm.DB {
	s.writeMu.Lock()
	s.inFlig.Add(1)
	return s.db.Begin()
}

// Commit finalizes a transaction started with Begin.
func (s *Store) Commit(tx *gorm.DB) error {
	defer s.writeMu.Unlock()
	defer s.inFlig.Done()
	return tx.Commit().Error
}

// Rollback aborts a transaction started with Begin.
func (s *Store) Rollback(tx *gorm.DB) error {
	defer s.writeMu.Unlock()
	defer s.inFlig.Done()
	return tx.Rollback().Error
}

// Wait completes when no statements are in flight, for callers that need
// read-after-write. The orchestrator does not call it before reading.
func (s *Store) Wait() {
	s.inFlig.Wait()
}

// withWrite runs fn under the single-writer discipline for a statement that
// doesn't need an explicit multi-statement transaction.
func (s *Store) withWrite(fn func(*gorm.DB) error) error {
	s.writeMu.Lock()
	s.inFlig.Add(1)
	defer s.inFlig.Done()
	defer s.writeMu.Unlock()
	return fn(s.db)
}

// resolveAddress returns the id of addr, inserting a row if this is the
// first time it's seen. Insert-only: address rows are never updated.
func resolveAddress(tx *gorm.DB, addr string) (uint64, error) {
	addr = model.NormalizeAddress(addr)
	var a model.Address
	err := tx.Where("hex = ?", addr).First(&a).Error
	if err == nil {
		return a.ID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return 0, err
	}
	a = model.Address{Hex: addr}
	if err := tx.Create(&a).Error; err != nil {
		// concurrent insert raced us; re-read.
		var existing model.Address
		if err2 := tx.Where("hex = ?", addr).First(&existing).Error; err2 == nil {
			return existing.ID, nil
		}
		return 0, err
	}
	return a.ID, nil
}

// ResolveAddressID is the public, single-statement form of resolveAddress
// used by callers that are not already inside an ingestion transaction.
func (s *Store) ResolveAddressID(ctx context.Context, addr string) (uint64, error) {
	var id uint64
	err := s.withWrite(func(tx *gorm.DB) error {
		var e error
		id, e = resolveAddress(tx, addr)
		return e
	})
	return id, err
}

// addressID looks up addr's row id with a plain read, never taking
// writeMu, so the typed Erc*Transfer/Approval query methods (events.go)
// don't serialize behind ingestion writes (spec.md §5: "reads are allowed
// concurrently with the store's sequencing"). ok is false when addr has
// never been seen; callers should treat that as "no events", not an error.
func (s *Store) addressID(addr string) (id uint64, ok bool, err error) {
	addr = model.NormalizeAddress(addr)
	var a model.Address
	err = s.db.Where("hex = ?", addr).First(&a).Error
	if err == nil {
		return a.ID, true, nil
	}
	if err == gorm.ErrRecordNotFound {
		return 0, false, nil
	}
	return 0, false, err
}

// AddressHex resolves an address row id back to its canonical hex string.
func (s *Store) AddressHex(id uint64) (string, error) {
	var a model.Address
	if err := s.db.First(&a, id).Error; err != nil {
		return "", err
	}
	return a.Hex, nil
}
