package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"teasales/backend/internal/domain"
)

func TestMemoryDraftStoreExpiresIdleDrafts(t *testing.T) {
	now := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	s := NewMemoryDraftStore()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	draft := &domain.Draft{ID: "draft-1", OwnerID: "user-seller"}
	if err := s.Save(ctx, draft, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	now = now.Add(59 * time.Second)
	if _, ok, _ := s.Get(ctx, "draft-1"); !ok {
		t.Fatalf("expected draft before ttl")
	}

	now = now.Add(time.Second)
	if _, ok, _ := s.Get(ctx, "draft-1"); ok {
		t.Fatalf("expected draft to expire at ttl")
	}
}

func TestMemoryDraftStoreSaveRefreshesTTL(t *testing.T) {
	now := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	s := NewMemoryDraftStore()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	draft := &domain.Draft{ID: "draft-1"}
	_ = s.Save(ctx, draft, time.Minute)
	now = now.Add(50 * time.Second)
	_ = s.Save(ctx, draft, time.Minute)
	now = now.Add(50 * time.Second)

	if _, ok, _ := s.Get(ctx, "draft-1"); !ok {
		t.Fatalf("expected refreshed draft to survive")
	}
}

func TestMemoryDraftStoreReturnsCopies(t *testing.T) {
	s := NewMemoryDraftStore()
	ctx := context.Background()

	draft := &domain.Draft{
		ID:       "draft-1",
		Customer: &domain.CustomerRef{ID: "cust-amit", Name: "Amit"},
		Lines:    []domain.CartLine{{ProductID: "prod-a", Quantity: 1, UnitPrice: decimal.NewFromInt(10), LineTotal: decimal.NewFromInt(10)}},
	}
	_ = s.Save(ctx, draft, 0)

	draft.Lines[0].Quantity = 99
	draft.Customer.Name = "changed"

	got, ok, err := s.Get(ctx, "draft-1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Lines[0].Quantity != 1 || got.Customer.Name != "Amit" {
		t.Fatalf("stored draft was mutated through caller's pointer: %+v", got)
	}

	if err := s.Delete(ctx, "draft-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "draft-1"); ok {
		t.Fatalf("expected draft to be deleted")
	}
}

func TestMemoryDraftStoreUpdateIsAtomic(t *testing.T) {
	s := NewMemoryDraftStore()
	ctx := context.Background()
	_ = s.Save(ctx, &domain.Draft{ID: "draft-1"}, time.Minute)

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = s.Update(ctx, "draft-1", time.Minute, func(d *domain.Draft) error {
				d.Lines = append(d.Lines, domain.CartLine{ProductID: "prod-a", Quantity: 1})
				return nil
			})
		}()
	}
	wg.Wait()

	got, ok, _ := s.Get(ctx, "draft-1")
	if !ok || len(got.Lines) != writers {
		t.Fatalf("expected %d lines after concurrent updates, got %d", writers, len(got.Lines))
	}
}

func TestMemoryDraftStoreUpdateErrorWritesNothing(t *testing.T) {
	s := NewMemoryDraftStore()
	ctx := context.Background()
	_ = s.Save(ctx, &domain.Draft{ID: "draft-1", OwnerID: "user-seller"}, time.Minute)

	boom := errors.New("boom")
	_, found, err := s.Update(ctx, "draft-1", time.Minute, func(d *domain.Draft) error {
		d.OwnerID = "someone-else"
		return boom
	})
	if !found || !errors.Is(err, boom) {
		t.Fatalf("expected found draft and boom error, got found=%v err=%v", found, err)
	}
	got, _, _ := s.Get(ctx, "draft-1")
	if got.OwnerID != "user-seller" {
		t.Fatalf("failed update must not be stored, owner=%q", got.OwnerID)
	}

	if _, found, err := s.Update(ctx, "missing", time.Minute, func(*domain.Draft) error { return nil }); found || err != nil {
		t.Fatalf("expected not found, got found=%v err=%v", found, err)
	}
}

func TestMemoryDraftStoreTakeRemoves(t *testing.T) {
	s := NewMemoryDraftStore()
	ctx := context.Background()
	_ = s.Save(ctx, &domain.Draft{ID: "draft-1"}, time.Minute)

	if _, ok, _ := s.Take(ctx, "draft-1"); !ok {
		t.Fatalf("expected first take to return the draft")
	}
	if _, ok, _ := s.Take(ctx, "draft-1"); ok {
		t.Fatalf("expected second take to find nothing")
	}
}
