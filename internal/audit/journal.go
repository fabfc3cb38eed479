// Package audit keeps an append-only journal of executed actions in bbolt.
package audit

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

// EntryType classifies a journal entry.
type EntryType string

const (
	EntryExecuted EntryType = "executed"
	EntryFailed   EntryType = "failed"
	EntryDenied   EntryType = "denied"
)

var bucketEntries = []byte("entries")

// ErrClosed is returned by operations on a closed journal.
var ErrClosed = errors.New("audit journal closed")

// Entry is one journal record.
type Entry struct {
	Timestamp  time.Time       `json:"timestamp"`
	Sequence   uint64          `json:"sequence"`
	Type       EntryType       `json:"type"`
	ResourceID string          `json:"resource_id,omitempty"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
}

// Journal appends entries under monotonically increasing sequence numbers.
type Journal struct {
	mu  sync.Mutex
	db  *bbolt.DB
	now func() time.Time
}

// Open creates or opens the journal at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}

	return &Journal{db: db, now: time.Now}, nil
}

// Close closes the journal. Closing twice is a no-op.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// Append adds an entry.
func (j *Journal) Append(entryType EntryType, resourceID string, data any) error {
	return j.append(entryType, resourceID, data, "")
}

// AppendError adds an entry carrying an error.
func (j *Journal) AppendError(entryType EntryType, resourceID string, data any, errToLog error) error {
	msg := ""
	if errToLog != nil {
		msg = errToLog.Error()
	}
	return j.append(entryType, resourceID, data, msg)
}

func (j *Journal) append(entryType EntryType, resourceID string, data any, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return ErrClosed
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	return j.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}

		entry := Entry{
			Timestamp:  j.now().UTC(),
			Sequence:   seq,
			Type:       entryType,
			ResourceID: resourceID,
			Data:       jsonData,
			Error:      errMsg,
		}
		value, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		return bucket.Put(sequenceKey(seq), value)
	})
}

// Replay calls handler for every entry newer than since, in sequence order.
// A handler error stops the replay and is returned.
func (j *Journal) Replay(since time.Time, handler func(*Entry) error) error {
	j.mu.Lock()
	db := j.db
	j.mu.Unlock()
	if db == nil {
		return ErrClosed
	}

	return db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(_, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshal entry: %w", err)
			}
			if !entry.Timestamp.After(since) {
				return nil
			}
			return handler(&entry)
		})
	})
}

// Stats summarizes the journal.
type Stats struct {
	Entries      int
	LastSequence uint64
	ByType       map[EntryType]int
}

// GetStats returns current journal statistics.
func (j *Journal) GetStats() (Stats, error) {
	stats := Stats{ByType: make(map[EntryType]int)}
	err := j.Replay(time.Time{}, func(e *Entry) error {
		stats.Entries++
		stats.ByType[e.Type]++
		stats.LastSequence = e.Sequence
		return nil
	})
	return stats, err
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
