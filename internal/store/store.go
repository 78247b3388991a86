// Package store holds the geocoded event set shared by the table and map views.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/klabast/wb-services/bildungszeit-finder/internal/catalog"
)

// Source describes where the current event set came from
type Source string

const (
	SourceNone     Source = ""
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Event is a catalog course with resolved coordinates
type Event struct {
	ID        int            `json:"id"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	EventInfo catalog.Course `json:"eventInfo"`
}

// Status is a snapshot of the store state
type Status struct {
	Loading   bool      `json:"loading"`
	Loaded    bool      `json:"loaded"`
	Count     int       `json:"count"`
	Source    Source    `json:"source"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Store is an in-memory, concurrency-safe event set
type Store struct {
	mu        sync.RWMutex
	events    []Event
	byID      map[int]int
	loading   bool
	loaded    bool
	source    Source
	updatedAt time.Time
	lastError string
}

// New creates an empty store
func New() *Store {
	return &Store{
		byID: make(map[int]int),
	}
}

// BeginLoading marks a refresh as in progress
func (s *Store) BeginLoading() {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
}

// EndLoading clears the loading flag without touching the event set
func (s *Store) EndLoading() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// Replace swaps the whole event set. Later duplicates of an id are dropped.
func (s *Store) Replace(events []Event, source Source) {
	next := make([]Event, 0, len(events))
	byID := make(map[int]int, len(events))
	for _, e := range events {
		if _, dup := byID[e.ID]; dup {
			continue
		}
		byID[e.ID] = len(next)
		next = append(next, e)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = next
	s.byID = byID
	s.source = source
	s.loading = false
	s.loaded = true
	s.updatedAt = time.Now()
	if source == SourceLive {
		s.lastError = ""
	}
}

// SetError records the last refresh error
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.lastError = ""
		return
	}
	s.lastError = err.Error()
}

// All returns a copy of every event in insertion order
func (s *Store) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Get looks up an event by id
func (s *Store) Get(id int) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return Event{}, false
	}
	return s.events[idx], true
}

// Len returns the number of stored events
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Source returns the origin of the current set
func (s *Store) Source() Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Status returns a snapshot of the store state
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Loading:   s.loading,
		Loaded:    s.loaded,
		Count:     len(s.events),
		Source:    s.source,
		UpdatedAt: s.updatedAt,
		LastError: s.lastError,
	}
}

// Search returns events whose title, organiser or city contains term
// (case-insensitive), sorted by start date ascending.
func (s *Store) Search(term string) []Event {
	events := s.All()
	return SortByStart(Match(events, term))
}

// Match filters events by a case-insensitive substring over
// kurztitel, va_name and ort. An empty term matches everything.
func Match(events []Event, term string) []Event {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(term))
	if needle == "" {
		return events
	}

	matched := make([]Event, 0, len(events))
	for _, e := range events {
		info := e.EventInfo
		if strings.Contains(fold.String(info.Kurztitel), needle) ||
			strings.Contains(fold.String(info.VaName), needle) ||
			strings.Contains(fold.String(info.Ort), needle) {
			matched = append(matched, e)
		}
	}
	return matched
}

// SortByStart orders events by datum_beginn ascending. Events with
// unparseable dates keep their relative order at the end.
func SortByStart(events []Event) []Event {
	starts := make(map[int]time.Time, len(events))
	for _, e := range events {
		if t, err := e.EventInfo.Start(); err == nil {
			starts[e.ID] = t
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		ti, iok := starts[events[i].ID]
		tj, jok := starts[events[j].ID]
		switch {
		case iok && jok:
			return ti.Before(tj)
		case iok:
			return true
		default:
			return false
		}
	})
	return events
}

// Page returns the zero-based page of size items. Out-of-range pages are empty.
func Page(events []Event, page, size int) []Event {
	if size <= 0 || page < 0 {
		return []Event{}
	}
	start := page * size
	if start >= len(events) {
		return []Event{}
	}
	end := start + size
	if end > len(events) {
		end = len(events)
	}
	return events[start:end]
}
