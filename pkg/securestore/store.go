package securestore

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"LeoneAI/pkg/cache"

	badger "github.com/dgraph-io/badger/v4"
)

// Store is an on-disk KV backed by Badger, optionally encrypted at rest.
// It satisfies cache.Service so it can back the session store.
type Store struct {
	db *badger.DB
}

type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 32 bytes; nil opens without encryption
	ReadOnly      bool
	InMemory      bool
}

var _ cache.Service = (*Store)(nil)

func Open(opts OpenOptions) (*Store, error) {
	if !opts.InMemory && strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("securestore: path is required")
	}

	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	if len(opts.EncryptionKey) > 0 {
		// encrypted tables need the index cache
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(16 << 20)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("securestore: open: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(k, value)
		if expiration > 0 {
			e = e.WithTTL(expiration)
		}
		return txn.SetEntry(e)
	})
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	k, err := s.key(key)
	if err != nil {
		return nil, err
	}

	var out []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, cache.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes every key in one transaction.
func (s *Store) Delete(_ context.Context, keys ...string) error {
	if s == nil || s.db == nil {
		return errors.New("securestore: not opened")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			k := []byte(strings.TrimSpace(key))
			if len(k) == 0 {
				continue
			}
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Exists(_ context.Context, keys ...string) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("securestore: not opened")
	}
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			_, err := txn.Get([]byte(strings.TrimSpace(key)))
			if err == nil {
				found = true
				return nil
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
	return found, err
}

func (s *Store) key(key string) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("securestore: not opened")
	}
	k := []byte(strings.TrimSpace(key))
	if len(k) == 0 {
		return nil, errors.New("securestore: key is empty")
	}
	return k, nil
}

// ParseKey accepts 32 bytes as hex (optionally 0x-prefixed) or base64.
// Empty input yields a nil key.
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x")); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	return nil, errors.New("key must be base64(32 bytes) or hex(32 bytes)")
}
