// Package favorites keeps the signed-in user's favorite books.
//
// A Store holds the favorites of at most one identity at a time. It is driven
// by session transitions (see Bind): activation loads the identity's durable
// record, deactivation drops the in-memory copy. Add and Remove write the
// whole list back to durable storage before they return.
//
// Reads fail open: a missing, unreadable or malformed record loads as an
// empty list. Writes fail closed: a storage error is returned to the caller
// and the in-memory list keeps its previous value.
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/mrlokans/bookfinder/internal/entities"
	"github.com/mrlokans/bookfinder/internal/metrics"
	"github.com/mrlokans/bookfinder/internal/storage"
)

var (
	ErrSessionInactive = errors.New("no active session")
	ErrMalformedRecord = errors.New("malformed favorites record")
	ErrDurableWrite    = errors.New("failed to persist favorites")
	ErrInvalidBook     = errors.New("book record must have an id")
)

// State is the lifecycle state of a Store.
type State int

const (
	StateUninitialized State = iota
	StateEmpty
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	default:
		return "uninitialized"
	}
}

// Store owns the in-memory favorites of the active identity.
type Store struct {
	durable storage.Durable
	locks   *Locks
	metrics *metrics.Metrics

	mu       sync.RWMutex
	identity string
	active   bool
	books    []entities.BookRecord
}

type Option func(*Store)

// WithLocks shares per-identity locks between stores. Every store that may
// touch the same identity concurrently must use the same Locks.
func WithLocks(l *Locks) Option {
	return func(s *Store) { s.locks = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func NewStore(durable storage.Durable, opts ...Option) *Store {
	s := &Store{durable: durable}
	for _, opt := range opts {
		opt(s)
	}
	if s.locks == nil {
		s.locks = NewLocks()
	}
	return s
}

// Activate loads identity's favorites, replacing whatever was held before.
func (s *Store) Activate(ctx context.Context, identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock := s.locks.Lock(identity)
	books := s.load(ctx, identity)
	unlock()

	if !s.active {
		s.metrics.StoreActivated()
	}
	s.identity = identity
	s.active = true
	s.books = books
	s.metrics.FavoriteOp("load", "ok")
}

// Deactivate discards the in-memory list. Durable storage is left untouched.
func (s *Store) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		s.metrics.StoreDeactivated()
	}
	s.identity = ""
	s.active = false
	s.books = nil
}

// State reports the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	switch {
	case !s.active:
		return StateUninitialized
	case len(s.books) == 0:
		return StateEmpty
	default:
		return StateLoaded
	}
}

// Identity returns the identity the store is loaded for.
func (s *Store) Identity() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.active
}

// List returns a copy of the current favorites in insertion order. It never
// returns nil.
func (s *Store) List() []entities.BookRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.BookRecord, len(s.books))
	copy(out, s.books)
	return out
}

// Count returns the number of favorites currently held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

// IsFavorite reports whether bookID is in the current list.
func (s *Store) IsFavorite(bookID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.books, bookID) >= 0
}

// Add appends book unless a book with the same ID is already present.
func (s *Store) Add(ctx context.Context, book entities.BookRecord) error {
	if book.ID == "" {
		return ErrInvalidBook
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		s.metrics.FavoriteOp("add", "inactive")
		return ErrSessionInactive
	}

	unlock := s.locks.Lock(s.identity)
	defer unlock()

	base := s.current(ctx)
	if indexOf(base, book.ID) >= 0 {
		s.books = base
		s.metrics.FavoriteOp("add", "noop")
		return nil
	}

	next := make([]entities.BookRecord, len(base), len(base)+1)
	copy(next, base)
	next = append(next, book)

	if err := s.persist(ctx, next); err != nil {
		s.metrics.FavoriteOp("add", "error")
		return err
	}
	s.books = next
	s.metrics.FavoriteOp("add", "ok")
	return nil
}

// Remove drops the book with bookID. The list is written back even when the
// book was not present.
func (s *Store) Remove(ctx context.Context, bookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		s.metrics.FavoriteOp("remove", "inactive")
		return ErrSessionInactive
	}

	unlock := s.locks.Lock(s.identity)
	defer unlock()

	base := s.current(ctx)
	next := make([]entities.BookRecord, 0, len(base))
	for _, b := range base {
		if b.ID != bookID {
			next = append(next, b)
		}
	}

	if err := s.persist(ctx, next); err != nil {
		s.metrics.FavoriteOp("remove", "error")
		return err
	}
	s.books = next
	s.metrics.FavoriteOp("remove", "ok")
	return nil
}

// current returns the list a mutation should start from: the durable record
// when it is readable, otherwise the in-memory list. Caller holds s.mu and the
// identity lock.
func (s *Store) current(ctx context.Context) []entities.BookRecord {
	raw, found, err := s.durable.Get(ctx, storage.FavoritesKey(s.identity))
	if err != nil || !found {
		return s.books
	}
	books, err := DecodeCollection(raw)
	if err != nil {
		return s.books
	}
	return books
}

func (s *Store) load(ctx context.Context, identity string) []entities.BookRecord {
	raw, found, err := s.durable.Get(ctx, storage.FavoritesKey(identity))
	if err != nil {
		log.Printf("[FAVORITES] WARNING: could not read favorites for %s, starting empty: %v", identity, err)
		return []entities.BookRecord{}
	}
	if !found {
		return []entities.BookRecord{}
	}

	books, err := DecodeCollection(raw)
	if err != nil {
		log.Printf("[FAVORITES] WARNING: ignoring unreadable favorites for %s: %v", identity, err)
		s.metrics.MalformedRecord()
		return []entities.BookRecord{}
	}
	return books
}

func (s *Store) persist(ctx context.Context, books []entities.BookRecord) error {
	raw, err := EncodeCollection(books)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDurableWrite, err)
	}
	if err := s.durable.Set(ctx, storage.FavoritesKey(s.identity), raw); err != nil {
		return fmt.Errorf("%w: %w", ErrDurableWrite, err)
	}
	return nil
}

// DecodeCollection parses a stored favorites list. Duplicate IDs keep their
// first occurrence and elements without an id are dropped. A JSON null decodes
// as an empty list.
func DecodeCollection(raw string) ([]entities.BookRecord, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	out := make([]entities.BookRecord, 0, len(elems))
	seen := make(map[string]bool, len(elems))
	for _, elem := range elems {
		var b entities.BookRecord
		if err := json.Unmarshal(elem, &b); err != nil {
			if errors.Is(err, entities.ErrMissingBookID) {
				continue
			}
			return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
		}
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	return out, nil
}

// EncodeCollection serializes a favorites list; an empty list is "[]".
func EncodeCollection(books []entities.BookRecord) (string, error) {
	if books == nil {
		books = []entities.BookRecord{}
	}
	data, err := json.Marshal(books)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func indexOf(books []entities.BookRecord, id string) int {
	for i, b := range books {
		if b.ID == id {
			return i
		}
	}
	return -1
}
