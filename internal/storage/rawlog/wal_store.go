package rawlog

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/txtally/internal/domain"
)

const (
	defaultRawDir   = "./wal/raw"
	rawSegmentLimit = 1000
	rawMaxSegments  = 100
	rawKeyPrefix    = "raw_batch_"
)

// Batch is one fetched endpoint response worth of raw records, kept
// verbatim so a run can be audited or replayed later.
type Batch struct {
	Endpoint  string             `json:"endpoint"`
	FetchedAt time.Time          `json:"fetched_at"`
	Records   []domain.RawRecord `json:"records"`
}

// BatchRecord pairs a stored batch with its WAL index.
type BatchRecord struct {
	Index uint64
	Batch Batch
}

// WALStore persists raw fetch batches in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed raw batch store under the
// provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultRawDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "raw_",
		SegmentThreshold: rawSegmentLimit,
		MaxSegments:      rawMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init raw batch WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes one endpoint's records to the WAL.
func (s *WALStore) Append(endpoint string, records []domain.RawRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("raw batch store is not initialized")
	}
	if endpoint == "" {
		return errors.New("raw batch endpoint is required")
	}

	payload, err := json.Marshal(Batch{
		Endpoint:  endpoint,
		FetchedAt: time.Now().UTC(),
		Records:   records,
	})
	if err != nil {
		return errors.Wrap(err, "marshal raw batch")
	}

	key := fmt.Sprintf("%s%s", rawKeyPrefix, endpoint)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// BatchesAfter returns all raw batches written after the provided WAL
// index.
func (s *WALStore) BatchesAfter(index uint64) ([]BatchRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("raw batch store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]BatchRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, rawKeyPrefix) {
			continue
		}
		var batch Batch
		if err := json.Unmarshal(payload, &batch); err != nil {
			return nil, errors.Wrap(err, "decode raw batch")
		}
		records = append(records, BatchRecord{Index: idx, Batch: batch})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("raw batch store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
