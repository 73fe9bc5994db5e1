package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-live-service/internal/domain"
)

const (
	matchKeyPrefix  = "match:"
	codeKeyPrefix   = "match:code:"
	updatesPrefix   = "match:updates:"
	transactRetries = 16
)

// MatchStore implements app.MatchStore on Redis. The match document lives as
// one JSON blob per key; Transact is an optimistic WATCH/MULTI loop, and
// every committed version is published on a per-match channel so Subscribe
// can feed snapshot listeners. Per-channel publish order plus the document
// version check give subscribers a causally non-decreasing feed.
type MatchStore struct {
	client *redis.Client
	clock  func() time.Time
}

func NewMatchStore(client *redis.Client) *MatchStore {
	return &MatchStore{client: client, clock: time.Now}
}

// NewMatchStoreWithClock allows deterministic timestamps in tests.
func NewMatchStoreWithClock(client *redis.Client, clock func() time.Time) *MatchStore {
	return &MatchStore{client: client, clock: clock}
}

func (s *MatchStore) Create(ctx context.Context, m domain.Match) error {
	m.CreatedAt = s.clock()
	m.Version = 1
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}

	// SETNX on the code index closes the check-then-act race on join codes:
	// of two concurrent creates with the same code, exactly one wins.
	claimed, err := s.client.SetNX(ctx, codeKey(m.Code), m.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("claim join code: %w", err)
	}
	if !claimed {
		return domain.ErrDuplicateCode
	}
	if err := s.client.Set(ctx, matchKey(m.ID), data, 0).Err(); err != nil {
		_ = s.client.Del(ctx, codeKey(m.Code)).Err()
		return fmt.Errorf("store match: %w", err)
	}
	return nil
}

func (s *MatchStore) FindByCode(ctx context.Context, code string) (domain.Match, error) {
	id, err := s.client.Get(ctx, codeKey(code)).Result()
	if err == redis.Nil {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	if err != nil {
		return domain.Match{}, fmt.Errorf("resolve join code: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *MatchStore) Get(ctx context.Context, id string) (domain.Match, error) {
	raw, err := s.client.Get(ctx, matchKey(id)).Result()
	if err == redis.Nil {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	if err != nil {
		return domain.Match{}, fmt.Errorf("load match: %w", err)
	}
	var m domain.Match
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return domain.Match{}, fmt.Errorf("unmarshal match: %w", err)
	}
	return m, nil
}

func (s *MatchStore) Update(ctx context.Context, id string, patch domain.MatchPatch) error {
	_, err := s.Transact(ctx, id, func(domain.Match) (domain.MatchPatch, error) {
		return patch, nil
	})
	return err
}

func (s *MatchStore) Transact(ctx context.Context, id string, fn func(domain.Match) (domain.MatchPatch, error)) (domain.Match, error) {
	key := matchKey(id)

	var committed domain.Match
	for attempt := 0; attempt < transactRetries; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Result()
			if err == redis.Nil {
				return domain.ErrMatchNotFound
			}
			if err != nil {
				return fmt.Errorf("load match: %w", err)
			}
			var m domain.Match
			if err := json.Unmarshal([]byte(raw), &m); err != nil {
				return fmt.Errorf("unmarshal match: %w", err)
			}

			patch, err := fn(m.Clone())
			if err != nil {
				return err
			}
			m.Apply(patch)
			m.Version++

			data, err := json.Marshal(m)
			if err != nil {
				return fmt.Errorf("marshal match: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				pipe.Publish(ctx, updatesChannel(id), data)
				return nil
			})
			if err == nil {
				committed = m
			}
			return err
		}, key)

		if err == redis.TxFailedErr {
			// Another commit invalidated our read; re-run fn on a fresh snapshot.
			continue
		}
		if err != nil {
			return domain.Match{}, err
		}
		return committed, nil
	}
	return domain.Match{}, domain.ErrTransactionFailed
}

func (s *MatchStore) Subscribe(ctx context.Context, id string) (<-chan domain.Match, func(), error) {
	// Subscribe before the initial read so no committed version published in
	// between can be missed; the version check drops any duplicates.
	pubsub := s.client.Subscribe(ctx, updatesChannel(id))
	initial, err := s.Get(ctx, id)
	if err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan domain.Match, 8)
	done := make(chan struct{})

	go func() {
		defer close(out)
		last := initial.Version
		deliver(out, initial)
		msgs := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var m domain.Match
				if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
					continue
				}
				if m.Version <= last {
					continue
				}
				last = m.Version
				deliver(out, m)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return out, cancel, nil
}

// deliver pushes a snapshot, coalescing onto a slow consumer by replacing
// the stale buffered snapshot with the newest one.
func deliver(out chan domain.Match, m domain.Match) {
	select {
	case out <- m:
	default:
		select {
		case <-out:
		default:
		}
		out <- m
	}
}

func matchKey(id string) string {
	return matchKeyPrefix + id
}

func codeKey(code string) string {
	return codeKeyPrefix + code
}

func updatesChannel(id string) string {
	return updatesPrefix + id
}
