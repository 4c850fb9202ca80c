package search

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Snapshot keys inside the badger store.
const (
	keySnapshot = "tt/snapshot"
	keyChecksum = "tt/checksum"
)

// SaveTable writes the table's filled entries to a badger store at path so
// a later process starts with a warm table. The payload is checksummed;
// Load refuses a snapshot whose checksum does not match.
func SaveTable(t *Table, path string, logger zerolog.Logger) error {
	entries := t.Export()
	if len(entries) == 0 {
		logger.Debug().Msg("table-snapshot-skipped-empty")
		return nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entries); err != nil {
		return fmt.Errorf("encoding table snapshot: %w", err)
	}
	payload := buf.Bytes()
	checksum := xxhash.Sum64(payload)

	db, err := openStore(path)
	if err != nil {
		return err
	}
	defer db.Close()

	err = db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keySnapshot), payload); err != nil {
			return err
		}
		var sum [8]byte
		for i := 0; i < 8; i++ {
			sum[i] = byte(checksum >> (8 * i))
		}
		return txn.Set([]byte(keyChecksum), sum[:])
	})
	if err != nil {
		return fmt.Errorf("writing table snapshot: %w", err)
	}

	logger.Info().
		Int("entries", len(entries)).
		Str("path", path).
		Msg("table-snapshot-saved")
	return nil
}

// LoadTable restores a snapshot from path into t. A missing or mismatched
// snapshot is not an error; the table just starts cold.
func LoadTable(t *Table, path string, logger zerolog.Logger) error {
	db, err := openStore(path)
	if err != nil {
		return err
	}
	defer db.Close()

	var payload []byte
	var storedSum uint64
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keySnapshot))
		if err != nil {
			return err
		}
		if payload, err = item.ValueCopy(nil); err != nil {
			return err
		}

		sumItem, err := txn.Get([]byte(keyChecksum))
		if err != nil {
			return err
		}
		return sumItem.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("bad checksum length %d", len(val))
			}
			for i := 0; i < 8; i++ {
				storedSum |= uint64(val[i]) << (8 * i)
			}
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		logger.Debug().Str("path", path).Msg("no-table-snapshot")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading table snapshot: %w", err)
	}

	if xxhash.Sum64(payload) != storedSum {
		logger.Warn().Str("path", path).Msg("table-snapshot-checksum-mismatch")
		return nil
	}

	var entries []SavedEntry
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&entries); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("table-snapshot-undecodable")
		return nil
	}

	t.Import(entries)
	logger.Info().
		Int("entries", len(entries)).
		Str("path", path).
		Msg("table-snapshot-restored")
	return nil
}

func openStore(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening table store %s: %w", path, err)
	}
	return db, nil
}
