package views

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"card-validator/pkg/form"
)

var (
	ErrViewNotFound = errors.New("view not found")
	ErrViewExpired  = errors.New("view expired")
)

// View is one open page of the card form
type View struct {
	ID   string
	Form *form.Manager

	submitting atomic.Bool
	lastSeen   atomic.Int64
}

// BeginSubmit marks the view as submitting. It returns false when a
// submission is already in flight.
func (v *View) BeginSubmit() bool {
	return v.submitting.CompareAndSwap(false, true)
}

// EndSubmit releases the in-flight flag taken by BeginSubmit
func (v *View) EndSubmit() {
	v.submitting.Store(false)
}

// Submitting reports whether a submission is in flight
func (v *View) Submitting() bool {
	return v.submitting.Load()
}

func (v *View) touch(now time.Time) {
	v.lastSeen.Store(now.UnixNano())
}

func (v *View) expiredAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(time.Unix(0, v.lastSeen.Load())) > ttl
}

// DefaultMaxViews bounds the number of views held at once
const DefaultMaxViews = 10000

// Store holds the open views in memory. Nothing is persisted; a view that
// goes idle for longer than the TTL is dropped.
type Store struct {
	views map[string]*View
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time

	// MaxViews caps the open views. Opening one more evicts the view that
	// was seen least recently.
	MaxViews int

	// OnChange is called with the number of open views after it changes
	OnChange func(n int)
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		views:    make(map[string]*View),
		ttl:      ttl,
		now:      time.Now,
		MaxViews: DefaultMaxViews,
	}
}

// Open creates a fresh view with an empty card form
func (s *Store) Open() *View {
	v := &View{
		ID:   uuid.NewString(),
		Form: form.NewCardForm(),
	}
	v.touch(s.now())

	s.mu.Lock()
	if s.MaxViews > 0 {
		for len(s.views) >= s.MaxViews {
			s.evictOldestLocked()
		}
	}
	s.views[v.ID] = v
	n := len(s.views)
	s.mu.Unlock()

	s.notify(n)
	return v
}

// evictOldestLocked drops the least recently seen view. s.mu must be held.
func (s *Store) evictOldestLocked() {
	var oldestID string
	var oldest int64
	for id, v := range s.views {
		seen := v.lastSeen.Load()
		if oldestID == "" || seen < oldest {
			oldestID, oldest = id, seen
		}
	}
	delete(s.views, oldestID)
}

// Get returns the view with the given ID and refreshes its idle timer
func (s *Store) Get(id string) (*View, error) {
	s.mu.RLock()
	v, exists := s.views[id]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrViewNotFound
	}

	now := s.now()
	if v.expiredAt(now, s.ttl) {
		s.Close(id)
		return nil, ErrViewExpired
	}

	v.touch(now)
	return v, nil
}

// Close drops a view. Closing an unknown ID is a no-op.
func (s *Store) Close(id string) {
	s.mu.Lock()
	_, exists := s.views[id]
	delete(s.views, id)
	n := len(s.views)
	s.mu.Unlock()

	if exists {
		s.notify(n)
	}
}

// Len returns the number of open views
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}

// Sweep drops every expired view and returns how many were removed
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for id, v := range s.views {
		if v.expiredAt(now, s.ttl) {
			delete(s.views, id)
			removed++
		}
	}
	n := len(s.views)
	s.mu.Unlock()

	if removed > 0 {
		s.notify(n)
	}
	return removed
}

// Run sweeps expired views until ctx is cancelled
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Store) notify(n int) {
	if s.OnChange != nil {
		s.OnChange(n)
	}
}
