// Package checkpoint persists log stream positions so a tail can resume
// where a previous process stopped.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	buildapi "github.com/electricimp/build-api"
)

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("checkpoint: store is closed")

// FileName is the database file created inside the checkpoint directory.
const FileName = "checkpoints.db"

var cursorBucket = []byte("cursors")

// Entry is one saved position.
type Entry struct {
	DeviceID  string    `json:"device_id"`
	Since     time.Time `json:"since"`
	UpdatedAt time.Time `json:"updated_at"`
}

// record is the serialized form of an Entry.
type record struct {
	Since     int64 `msgpack:"since"`
	UpdatedAt int64 `msgpack:"updated_at"`
}

// Store is a bbolt-backed buildapi.Checkpointer keyed by device id.
type Store struct {
	db     *bbolt.DB
	mu     sync.RWMutex
	path   string
	now    func() time.Time
	closed bool
}

var _ buildapi.Checkpointer = (*Store)(nil)

// Open opens (or creates) the checkpoint database inside dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}

	dbPath := filepath.Join(dir, FileName)
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open checkpoint database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cursorBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cursor bucket: %w", err)
	}

	return &Store{db: db, path: dbPath, now: time.Now}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// LoadCursor implements buildapi.Checkpointer.
func (s *Store) LoadCursor(_ context.Context, deviceID string) (buildapi.Cursor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return buildapi.Cursor{}, false, ErrClosed
	}

	var (
		rec   record
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(cursorBucket).Get([]byte(deviceID))
		if data == nil {
			return nil
		}
		found = true
		// data is only valid during the transaction; Unmarshal copies.
		if err := msgpack.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode cursor for %s: %w", deviceID, err)
		}
		return nil
	})
	if err != nil || !found {
		return buildapi.Cursor{}, false, err
	}
	return buildapi.SinceCursor(time.Unix(0, rec.Since).UTC()), true, nil
}

// SaveCursor implements buildapi.Checkpointer. Only the timestamp is kept:
// continuation handles do not outlive the server session that issued them.
func (s *Store) SaveCursor(_ context.Context, deviceID string, c buildapi.Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	data, err := msgpack.Marshal(record{
		Since:     c.Since.UnixNano(),
		UpdatedAt: s.now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("encode cursor for %s: %w", deviceID, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(cursorBucket).Put([]byte(deviceID), data)
	})
}

// Delete forgets the saved position of a device. Deleting an unknown
// device is not an error.
func (s *Store) Delete(deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(cursorBucket).Delete([]byte(deviceID))
	})
}

// List returns every saved position, ordered by device id.
func (s *Store) List() ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	var entries []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(cursorBucket).ForEach(func(k, v []byte) error {
			var rec record
			if err := msgpack.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode cursor for %s: %w", k, err)
			}
			entries = append(entries, Entry{
				DeviceID:  string(k),
				Since:     time.Unix(0, rec.Since).UTC(),
				UpdatedAt: time.Unix(0, rec.UpdatedAt).UTC(),
			})
			return nil
		})
	})
	return entries, err
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
