package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/vjranagit/spinrtt/internal/metrics"
	"github.com/vjranagit/spinrtt/pkg/types"
)

var (
	// ErrRunNotFound is returned when no run is stored under the requested ID
	ErrRunNotFound = errors.New("run not found")
	// ErrResultNotFound is returned when no result is stored under the requested key
	ErrResultNotFound = errors.New("result not found")
	// ErrInvalidRunID is returned for run IDs that cannot be used as a key segment
	ErrInvalidRunID = errors.New("invalid run ID")
)

// Storage interface defines the contract for run and result storage
type Storage interface {
	// PutRun stores a run, replacing any run with the same ID and dropping
	// the results computed from it
	PutRun(ctx context.Context, run *types.Run) error

	// GetRun loads a run with all of its records
	GetRun(ctx context.Context, id string) (*types.Run, error)

	// FindRuns lists the runs whose labels match every selector
	FindRuns(ctx context.Context, selectors map[string]string) ([]RunInfo, error)

	// PutResult stores an ECDF computed from a run
	PutResult(ctx context.Context, runID, key string, ecdf *types.ECDF) error

	// GetResult loads a stored ECDF
	GetResult(ctx context.Context, runID, key string) (*types.ECDF, error)

	// Close closes the storage
	Close() error
}

// Config holds storage configuration
type Config struct {
	Path             string
	CompressionLevel int
	InMemory         bool
	SyncWrites       bool
}

// DefaultConfig returns default storage configuration
func DefaultConfig() *Config {
	return &Config{
		Path:             "./data",
		CompressionLevel: 3,
	}
}

const (
	runPrefix    = "run/"
	metaPrefix   = "meta/"
	resultPrefix = "result/"
)

// badgerStorage implements Storage using BadgerDB
type badgerStorage struct {
	cfg        *Config
	db         *badger.DB
	index      *Index
	compressor *Compressor
	log        *logrus.Entry
	mu         sync.RWMutex
}

// NewStorage opens the store and rebuilds the run index from it
func NewStorage(cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	logger := logrus.WithField("component", "storage")

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(logger.WithField("engine", "badger")).
		WithLoggingLevel(badger.WARNING)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	compressor, err := NewCompressor(cfg.CompressionLevel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}

	s := &badgerStorage{
		cfg:        cfg,
		db:         db,
		index:      NewIndex(),
		compressor: compressor,
		log:        logger,
	}

	if err := s.loadIndex(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load run index: %w", err)
	}
	logger.WithField("runs", s.index.RunCount()).Debug("storage opened")

	return s, nil
}

// loadIndex rebuilds the in-memory index from the meta keys
// loadIndex rebuilds the in-memory index from the stored run metadata
func (s *badgerStorage) loadIndex() error {
	s.index.Clear()
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var info RunInfo
				if err := json.Unmarshal(val, &info); err != nil {
					return err
				}
				return s.index.AddRun(&info)
			})
			if err != nil {
				return fmt.Errorf("key %q: %w", it.Item().Key(), err)
			}
		}
		return nil
	})
}

// PutRun implements Storage.PutRun
func (s *badgerStorage) PutRun(ctx context.Context, run *types.Run) error {
	if run == nil {
		return fmt.Errorf("%w: run is nil", ErrInvalidRunID)
	}
	if err := ValidateRunID(run.ID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := s.encodeRun(run)
	if err != nil {
		return fmt.Errorf("failed to encode run %q: %w", run.ID, err)
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal run payload: %w", err)
	}

	info := runInfoOf(run)
	infoBytes, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal run metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DropPrefix(generateKey(resultPrefix, run.ID, "")); err != nil {
		return fmt.Errorf("failed to drop stale results: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(generateKey(runPrefix, run.ID), payloadBytes); err != nil {
			return err
		}
		return txn.Set(generateKey(metaPrefix, run.ID), infoBytes)
	})
	if err != nil {
		return fmt.Errorf("failed to write run %q: %w", run.ID, err)
	}

	s.log.WithFields(logrus.Fields{
		"run":     run.ID,
		"records": len(run.Records),
		"bytes":   len(payloadBytes),
	}).Debug("run stored")

	return s.index.AddRun(info)
}

// GetRun implements Storage.GetRun
func (s *badgerStorage) GetRun(ctx context.Context, id string) (*types.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	payloadBytes, err := s.readKey(generateKey(runPrefix, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var payload runPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run payload: %w", err)
	}

	return s.decodeRun(&payload)
}

// FindRuns implements Storage.FindRuns
func (s *badgerStorage) FindRuns(ctx context.Context, selectors map[string]string) ([]RunInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.index.FindRuns(selectors)
	result := make([]RunInfo, 0, len(ids))
	for _, id := range ids {
		if info, ok := s.index.GetRun(id); ok {
			result = append(result, *info)
		}
	}

	return result, nil
}

// PutResult implements Storage.PutResult
func (s *badgerStorage) PutResult(ctx context.Context, runID, key string, ecdf *types.ECDF) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := s.encodeResult(ecdf)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal result payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index.GetRun(runID); !ok {
		return fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(generateKey(resultPrefix, runID, key), payloadBytes)
	})
}

// GetResult implements Storage.GetResult
func (s *badgerStorage) GetResult(ctx context.Context, runID, key string) (*types.ECDF, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	payloadBytes, err := s.readKey(generateKey(resultPrefix, runID, key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrResultNotFound, runID, key)
	}
	if err != nil {
		return nil, err
	}

	var payload resultPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result payload: %w", err)
	}

	result, err := s.decodeResult(&payload)
	if err != nil {
		return nil, err
	}
	metrics.CacheLookups.WithLabelValues(metrics.SourceStore).Inc()
	return result, nil
}

// readKey copies the value stored under key out of BadgerDB
func (s *badgerStorage) readKey(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, err
}

// Close implements Storage.Close
func (s *badgerStorage) Close() error {
	if s.compressor != nil {
		s.compressor.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateKey joins a key prefix and its path segments
func generateKey(prefix string, parts ...string) []byte {
	key := []byte(prefix)
	for i, p := range parts {
		if i > 0 {
			key = append(key, '/')
		}
		key = append(key, p...)
	}
	return key
}

// ValidateRunID rejects IDs that are empty or contain the key separator.
// A '/' would let the result prefix of one run match the results of another.
func ValidateRunID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: run ID is required", ErrInvalidRunID)
	}
	if strings.Contains(id, "/") {
		return fmt.Errorf("%w: %q contains '/'", ErrInvalidRunID, id)
	}
	return nil
}

func runInfoOf(run *types.Run) *RunInfo {
	info := &RunInfo{
		ID:        run.ID,
		Labels:    make(map[string]string, len(run.Labels)),
		Analyzers: append([]string(nil), run.Analyzers...),
		Records:   len(run.Records),
	}
	for k, v := range run.Labels {
		info.Labels[k] = v
	}
	for name := range run.References {
		info.References = append(info.References, name)
	}
	sort.Strings(info.References)

	if n := len(run.Records); n > 0 {
		info.Start = run.Records[0].Time
		info.End = run.Records[n-1].Time
	}
	return info
}
