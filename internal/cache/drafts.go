package cache

import (
	"context"
	"sync"
	"time"

	"teasales/backend/internal/domain"
)

// DraftStore holds in-progress sales. Each Save or Update refreshes the idle TTL.
//
// Update applies fn to the stored draft and saves the result as one step, so
// concurrent edits to the same draft are applied one after another. When fn
// returns an error nothing is written. Take removes and returns a draft in
// one step.
type DraftStore interface {
	Get(ctx context.Context, id string) (*domain.Draft, bool, error)
	Save(ctx context.Context, draft *domain.Draft, ttl time.Duration) error
	Update(ctx context.Context, id string, ttl time.Duration, fn func(*domain.Draft) error) (*domain.Draft, bool, error)
	Take(ctx context.Context, id string) (*domain.Draft, bool, error)
	Delete(ctx context.Context, id string) error
}

type draftEntry struct {
	draft     domain.Draft
	expiresAt time.Time
}

type MemoryDraftStore struct {
	mu      sync.Mutex
	entries map[string]draftEntry
	now     func() time.Time
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{
		entries: make(map[string]draftEntry),
		now:     time.Now,
	}
}

func (s *MemoryDraftStore) Get(_ context.Context, id string) (*domain.Draft, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.liveLocked(id)
	if !ok {
		return nil, false, nil
	}
	draft := cloneDraft(entry.draft)
	return &draft, true, nil
}

func (s *MemoryDraftStore) Update(_ context.Context, id string, ttl time.Duration, fn func(*domain.Draft) error) (*domain.Draft, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.liveLocked(id)
	if !ok {
		return nil, false, nil
	}
	draft := cloneDraft(entry.draft)
	if err := fn(&draft); err != nil {
		return nil, true, err
	}

	next := draftEntry{draft: cloneDraft(draft)}
	if ttl > 0 {
		next.expiresAt = s.now().Add(ttl)
	}
	s.entries[id] = next
	return &draft, true, nil
}

func (s *MemoryDraftStore) Take(_ context.Context, id string) (*domain.Draft, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.liveLocked(id)
	if !ok {
		return nil, false, nil
	}
	delete(s.entries, id)
	draft := cloneDraft(entry.draft)
	return &draft, true, nil
}

func (s *MemoryDraftStore) Save(_ context.Context, draft *domain.Draft, ttl time.Duration) error {
	if draft == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := draftEntry{draft: cloneDraft(*draft)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[draft.ID] = entry
	s.sweepLocked()
	return nil
}

func (s *MemoryDraftStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// liveLocked returns the entry for id unless it has expired. Caller holds mu.
func (s *MemoryDraftStore) liveLocked(id string) (draftEntry, bool) {
	entry, ok := s.entries[id]
	if !ok {
		return draftEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, id)
		return draftEntry{}, false
	}
	return entry, true
}

// sweepLocked drops expired drafts. Caller holds mu.
func (s *MemoryDraftStore) sweepLocked() {
	now := s.now()
	for id, entry := range s.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}

func cloneDraft(src domain.Draft) domain.Draft {
	dst := src
	dst.Lines = append([]domain.CartLine(nil), src.Lines...)
	if src.Customer != nil {
		customer := *src.Customer
		dst.Customer = &customer
	}
	return dst
}
