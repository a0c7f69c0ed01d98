// Package store persists frame-level arrays (feature matrices, score
// matrices, label vectors, speaker embeddings) in a key-addressable badger
// store, one store directory per artifact kind per shard.
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned when a key has no record.
var ErrNotFound = errors.New("key not found in array store")

// matrixRecord is the on-disk encoding of a 2-D float32 array.
type matrixRecord struct {
	Rows int       `msgpack:"rows"`
	Cols int       `msgpack:"cols"`
	Data []float32 `msgpack:"data"`
}

// Store wraps one badger database. Writes accumulate in a batch that is
// flushed explicitly; a crash loses at most the unflushed tail.
type Store struct {
	db    *badger.DB
	batch *badger.WriteBatch
}

// Open creates or opens a writable store directory.
func Open(dir string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open array store %s: %w", dir, err)
	}

	return &Store{db: db, batch: db.NewWriteBatch()}, nil
}

// OpenReadOnly opens an existing store for reads only.
func OpenReadOnly(dir string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil).WithReadOnly(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open array store %s read-only: %w", dir, err)
	}

	return &Store{db: db}, nil
}

// PutMatrix stores a 2-D float32 array under key.
func (s *Store) PutMatrix(key string, matrix [][]float32) error {
	rows := len(matrix)

	cols := 0
	if rows > 0 {
		cols = len(matrix[0])
	}

	record := matrixRecord{
		Rows: rows,
		Cols: cols,
		Data: make([]float32, 0, rows*cols),
	}

	for _, row := range matrix {
		record.Data = append(record.Data, row...)
	}

	return s.put(key, record)
}

// GetMatrix loads a 2-D float32 array.
func (s *Store) GetMatrix(key string) ([][]float32, error) {
	var record matrixRecord

	err := s.get(key, &record)
	if err != nil {
		return nil, err
	}

	matrix := make([][]float32, record.Rows)
	for i := range matrix {
		matrix[i] = record.Data[i*record.Cols : (i+1)*record.Cols]
	}

	return matrix, nil
}

// PutVector stores a 1-D float32 array under key.
func (s *Store) PutVector(key string, vector []float32) error {
	return s.put(key, vector)
}

// GetVector loads a 1-D float32 array.
func (s *Store) GetVector(key string) ([]float32, error) {
	var vector []float32

	err := s.get(key, &vector)
	if err != nil {
		return nil, err
	}

	return vector, nil
}

// PutLabels stores a per-frame label vector under key.
func (s *Store) PutLabels(key string, labels []uint8) error {
	return s.put(key, labels)
}

// GetLabels loads a per-frame label vector.
func (s *Store) GetLabels(key string) ([]uint8, error) {
	var labels []uint8

	err := s.get(key, &labels)
	if err != nil {
		return nil, err
	}

	return labels, nil
}

func (s *Store) put(key string, value any) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", key, err)
	}

	err = s.batch.Set([]byte(key), data)
	if err != nil {
		return fmt.Errorf("failed to stage record %s: %w", key, err)
	}

	return nil
}

func (s *Store) get(key string, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, key)
			}

			return err
		}

		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, out)
		})
	})
	if err != nil {
		return fmt.Errorf("failed to read record %s: %w", key, err)
	}

	return nil
}

// Keys returns every key in the store in lexical order.
func (s *Store) Keys() ([]string, error) {
	var keys []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list array store keys: %w", err)
	}

	return keys, nil
}

// Flush commits the pending write batch to disk and starts a new one.
func (s *Store) Flush() error {
	if s.batch == nil {
		return nil
	}

	err := s.batch.Flush()
	if err != nil {
		return fmt.Errorf("failed to flush array store batch: %w", err)
	}

	s.batch = s.db.NewWriteBatch()

	return nil
}

// Close flushes pending writes and closes the database.
func (s *Store) Close() error {
	if s.batch != nil {
		err := s.batch.Flush()
		if err != nil {
			return fmt.Errorf("failed to flush array store on close: %w", err)
		}

		s.batch = nil
	}

	return s.db.Close()
}
