package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	// ErrJobNotFound is returned when a job is not found in the journal.
	ErrJobNotFound = errors.New("job not found")
)

var (
	jobsBucket   = []byte("jobs")
	chunksBucket = []byte("chunks")
)

// JobState represents the current state of a transfer job.
type JobState string

const (
	StatePending   JobState = "Pending"
	StateRunning   JobState = "Running"
	StateCompleted JobState = "Completed"
	StateFailed    JobState = "Failed"
)

// JobRecord is the journaled state of a job. Records are diagnostic
// only; nothing reads them back during a transfer.
type JobRecord struct {
	ID               string    `json:"id"`
	Source           string    `json:"source"`
	Destination      string    `json:"destination"`
	Direction        string    `json:"direction"`
	State            JobState  `json:"state"`
	BytesTransferred int64     `json:"bytes_transferred"`
	TotalBytes       int64     `json:"total_bytes"`
	Streams          int       `json:"streams"`
	MaxRetries       int       `json:"max_retries"`
	Error            string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ChunkRecord is the journaled state of one chunk of a job.
type ChunkRecord struct {
	Index     int       `json:"index"`
	Offset    int64     `json:"offset"`
	Length    int64     `json:"length"`
	State     string    `json:"state"`
	Attempts  int       `json:"attempts"`
	Checksum  string    `json:"checksum,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Journal defines the interface for recording transfer progress.
type Journal interface {
	SaveJob(job *JobRecord) error
	GetJob(id string) (*JobRecord, error)
	SaveChunk(jobID string, chunk *ChunkRecord) error
	ListChunks(jobID string) ([]*ChunkRecord, error)
	Close() error
}

// BoltJournal is a Journal implementation backed by bbolt.
type BoltJournal struct {
	db *bbolt.DB
}

// NewBoltJournal opens (or creates) a journal at the given path.
func NewBoltJournal(path string) (*BoltJournal, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(jobsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(chunksBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltJournal{db: db}, nil
}

// SaveJob writes a job record to the journal.
func (s *BoltJournal) SaveJob(job *JobRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(jobsBucket)

		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}

		if err := b.Put([]byte(job.ID), data); err != nil {
			return fmt.Errorf("failed to put job: %w", err)
		}

		return nil
	})
}

// GetJob retrieves a job record from the journal.
func (s *BoltJournal) GetJob(id string) (*JobRecord, error) {
	var job JobRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(jobsBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return ErrJobNotFound
		}

		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("failed to unmarshal job: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return &job, nil
}

// SaveChunk writes a chunk record under its job.
func (s *BoltJournal) SaveChunk(jobID string, chunk *ChunkRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(chunksBucket)

		data, err := json.Marshal(chunk)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk: %w", err)
		}

		if err := b.Put(chunkKey(jobID, chunk.Index), data); err != nil {
			return fmt.Errorf("failed to put chunk: %w", err)
		}

		return nil
	})
}

// ListChunks returns all chunk records for a job in index order.
func (s *BoltJournal) ListChunks(jobID string) ([]*ChunkRecord, error) {
	var chunks []*ChunkRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(chunksBucket).Cursor()
		prefix := []byte(jobID + "/")

		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var chunk ChunkRecord
			if err := json.Unmarshal(v, &chunk); err != nil {
				return fmt.Errorf("failed to unmarshal chunk: %w", err)
			}
			chunks = append(chunks, &chunk)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return chunks, nil
}

// Close closes the underlying database.
func (s *BoltJournal) Close() error {
	return s.db.Close()
}

// chunkKey builds a key that sorts chunks of one job by index.
func chunkKey(jobID string, index int) []byte {
	return []byte(fmt.Sprintf("%s/%08d", jobID, index))
}
