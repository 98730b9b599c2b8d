// Package repository holds the karma score store and its snapshot file.
package repository

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/okian/karmabot/internal/domain/types"
	"github.com/okian/karmabot/pkg/logger"
)

// Sink receives the latest score of every term that changes.
type Sink interface {
	SetScore(term string, value int64)
}

// snapshotObserver is optionally implemented by a Sink.
type snapshotObserver interface {
	RecordSnapshotWrite(ok bool, seconds float64)
}

type nopSink struct{}

func (nopSink) SetScore(string, int64) {}

// record keeps the first-seen casing next to the score.
type record struct {
	term  string
	score int64
}

// Store is a concurrent, case-insensitive term -> score map.
// When it has a path every mutation rewrites the whole snapshot file.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record

	// persistMu orders snapshot writes so the last writer persists the latest state.
	persistMu sync.Mutex
	path      string

	sink   Sink
	logger logger.Logger
}

// New builds a store, loading the snapshot at path when there is one.
// An empty path never touches the filesystem. A corrupt or unreadable
// snapshot is logged and the store runs without persistence.
func New(ctx context.Context, path string, opts ...Option) *Store {
	s := &Store{
		records: make(map[string]*record),
		path:    path,
		sink:    nopSink{},
		logger:  logger.Get().Named("karma"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.path == "" {
		s.logger.Info(ctx, "no snapshot path given, not persisting")
		return s
	}

	values, err := readSnapshot(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info(ctx, "snapshot does not exist yet, starting empty", logger.String("path", s.path))
	case err != nil:
		s.logger.Error(ctx, "can't load snapshot, won't persist", logger.String("path", s.path), logger.Error(err))
		s.path = ""
	default:
		for term, value := range values {
			s.records[fold(term)] = &record{term: term, score: value}
			s.sink.SetScore(term, value)
		}
		s.logger.Info(ctx, "loaded snapshot", logger.String("path", s.path), logger.Int("terms", len(values)))
	}
	return s
}

// Get returns the score of term, 0 if unseen.
func (s *Store) Get(term string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.records[fold(term)]; ok {
		return r.score
	}
	return 0
}

// Set assigns value to term and returns the previous score.
func (s *Store) Set(ctx context.Context, term string, value int64) int64 {
	s.mu.Lock()
	r := s.lookupOrCreate(term)
	old := r.score
	r.score = value
	s.sink.SetScore(r.term, r.score)
	s.mu.Unlock()

	s.logger.Debug(ctx, "score set", logger.String("term", r.term), logger.Int64("old", old), logger.Int64("new", value))
	s.persist(ctx)
	return old
}

// BiasBatch applies every delta in one write pass and persists once.
// Deltas for the same term accumulate in order.
func (s *Store) BiasBatch(ctx context.Context, biases []types.Bias) {
	if len(biases) == 0 {
		return
	}

	s.mu.Lock()
	touched := make(map[*record]struct{}, len(biases))
	for _, b := range biases {
		r := s.lookupOrCreate(b.Term)
		r.score += b.Delta
		touched[r] = struct{}{}
	}
	for r := range touched {
		s.sink.SetScore(r.term, r.score)
	}
	s.mu.Unlock()

	s.logger.Debug(ctx, "biases applied", logger.Int("deltas", len(biases)), logger.Int("terms", len(touched)))
	s.persist(ctx)
}

// Entries returns every term ordered by score desc, then term asc ignoring case.
func (s *Store) Entries() []types.Entry {
	s.mu.RLock()
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	entries := make([]types.Entry, len(keys))
	sort.Slice(keys, func(i, j int) bool {
		a, b := s.records[keys[i]], s.records[keys[j]]
		if a.score != b.score {
			return a.score > b.score
		}
		return keys[i] < keys[j]
	})
	for i, k := range keys {
		r := s.records[k]
		entries[i] = types.Entry{Rank: i + 1, Term: r.term, Score: r.score}
	}
	s.mu.RUnlock()

	return entries
}

// Render joins every entry as "term: value" with "; ".
func (s *Store) Render() string {
	entries := s.Entries()
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.String()
	}
	return strings.Join(parts, "; ")
}

// Len returns the number of distinct terms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Persistent reports whether mutations are written to a snapshot file.
func (s *Store) Persistent() bool {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.path != ""
}

// lookupOrCreate must be called with mu held for writing.
func (s *Store) lookupOrCreate(term string) *record {
	key := fold(term)
	r, ok := s.records[key]
	if !ok {
		r = &record{term: term}
		s.records[key] = r
	}
	return r
}

func (s *Store) persist(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if s.path == "" {
		return
	}

	s.mu.RLock()
	values := make(map[string]int64, len(s.records))
	for _, r := range s.records {
		values[r.term] = r.score
	}
	s.mu.RUnlock()

	start := time.Now()
	err := writeSnapshot(s.path, values)
	if obs, ok := s.sink.(snapshotObserver); ok {
		obs.RecordSnapshotWrite(err == nil, time.Since(start).Seconds())
	}
	if err != nil {
		s.logger.Error(ctx, "snapshot write failed, memory stays authoritative",
			logger.String("path", s.path), logger.Error(err))
	}
}

func readSnapshot(path string) (map[string]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(data)
}

// fold is the key every term is compared by.
func fold(term string) string {
	// a Caser keeps state, so one per call
	return cases.Fold().String(term)
}
