package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const dirMode = 0o755

// BadgerStore keeps checkpoints in an embedded BadgerDB. Each Set is a
// single-key transaction, so readers never observe a partial write.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, dirMode); err != nil {
		return nil, fmt.Errorf("failed to create state path: %w", err)
	}
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, openError(path, err)
	}
	return &BadgerStore{db: db}, nil
}

// openError tells environment problems (a held directory lock, missing
// permissions) apart from damaged data files.
func openError(path string, err error) error {
	if errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("open badger at %s: %w", path, err)
	}
	return fmt.Errorf("%w: open badger at %s: %v", ErrCorrupt, path, err)
}

func (s *BadgerStore) Get(_ context.Context, key, def string) (string, error) {
	var rec record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			if err := msgpack.Unmarshal(v, &rec); err != nil {
				return corrupt("badger key %q: %v", key, err)
			}
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return def, nil
	}
	if err != nil {
		return "", err
	}
	return rec.Value, nil
}

func (s *BadgerStore) Set(_ context.Context, key, value string) error {
	data, err := msgpack.Marshal(record{Value: value, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
