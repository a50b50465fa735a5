package results

import (
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v3"

	"trading-sim-go/internal/models"
)

const resultKeyPrefix = "backtest_result:"

// badgerSink is the BadgerDB implementation of Sink. Results are stored as
// JSON under a per-id key.
type badgerSink struct {
	db *badger.DB
}

// NewBadgerSink opens (or creates) a BadgerDB database at dbPath and
// returns a Sink backed by it. Badger's own logging is disabled to keep the
// application logs clean; errors still surface from the operations.
func NewBadgerSink(dbPath string) (Sink, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerSink{db: db}, nil
}

func resultKey(id string) []byte {
	return []byte(resultKeyPrefix + id)
}

func (s *badgerSink) Store(result *models.BacktestResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(resultKey(result.ID), data)
	})
}

func (s *badgerSink) Load(id string) (*models.BacktestResult, error) {
	var result models.BacktestResult

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(resultKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &result)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil // no such result is not an error
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *badgerSink) Close() error {
	return s.db.Close()
}
