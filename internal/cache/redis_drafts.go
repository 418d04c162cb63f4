package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"teasales/backend/internal/domain"
)

const (
	draftKeyPrefix     = "teasales:draft:"
	draftUpdateRetries = 8
)

var ErrDraftBusy = errors.New("draft is being edited, retry")

// RedisDraftStore keeps drafts across restarts and replicas. Updates use
// WATCH/MULTI so concurrent edits to one draft never overwrite each other.
type RedisDraftStore struct {
	client *redis.Client
}

func NewRedisDraftStore(client *redis.Client) *RedisDraftStore {
	return &RedisDraftStore{client: client}
}

func (s *RedisDraftStore) Get(ctx context.Context, id string) (*domain.Draft, bool, error) {
	return decodeDraft(s.client.Get(ctx, draftKeyPrefix+id).Bytes())
}

func (s *RedisDraftStore) Save(ctx context.Context, draft *domain.Draft, ttl time.Duration) error {
	if draft == nil {
		return nil
	}
	payload, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, draftKeyPrefix+draft.ID, payload, ttl).Err()
}

func (s *RedisDraftStore) Update(ctx context.Context, id string, ttl time.Duration, fn func(*domain.Draft) error) (*domain.Draft, bool, error) {
	key := draftKeyPrefix + id

	var (
		updated *domain.Draft
		found   bool
	)
	txf := func(tx *redis.Tx) error {
		draft, ok, err := decodeDraft(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		found = ok
		if !ok {
			return nil
		}
		if err := fn(draft); err != nil {
			return err
		}
		payload, err := json.Marshal(draft)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		if err == nil {
			updated = draft
		}
		return err
	}

	for attempt := 0; attempt < draftUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, found, err
		}
		return updated, found, nil
	}
	return nil, true, ErrDraftBusy
}

func (s *RedisDraftStore) Take(ctx context.Context, id string) (*domain.Draft, bool, error) {
	return decodeDraft(s.client.GetDel(ctx, draftKeyPrefix+id).Bytes())
}

func (s *RedisDraftStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, draftKeyPrefix+id).Err()
}

func decodeDraft(val []byte, err error) (*domain.Draft, bool, error) {
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var draft domain.Draft
	if err := json.Unmarshal(val, &draft); err != nil {
		return nil, false, err
	}
	return &draft, true, nil
}
