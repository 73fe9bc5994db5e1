package memory

import (
	"context"
	"sync"
	"time"

	"trivia-live-service/internal/domain"
)

// MatchStore is an in-process implementation of app.MatchStore. A single
// mutex serializes commits, which trivially satisfies the transactional
// contract: every Transact runs against the latest committed document and no
// commit can be based on a read another commit invalidated.
type MatchStore struct {
	mu    sync.Mutex
	clock func() time.Time
	docs  map[string]*matchDoc
	codes map[string]string
}

type matchDoc struct {
	match       domain.Match
	subscribers map[chan domain.Match]struct{}
}

func NewMatchStore() *MatchStore {
	return &MatchStore{
		clock: time.Now,
		docs:  make(map[string]*matchDoc),
		codes: make(map[string]string),
	}
}

// NewMatchStoreWithClock allows deterministic timestamps in tests.
func NewMatchStoreWithClock(clock func() time.Time) *MatchStore {
	s := NewMatchStore()
	s.clock = clock
	return s
}

func (s *MatchStore) Create(_ context.Context, m domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.codes[m.Code]; taken {
		return domain.ErrDuplicateCode
	}
	m.CreatedAt = s.clock()
	m.Version = 1
	s.codes[m.Code] = m.ID
	s.docs[m.ID] = &matchDoc{
		match:       m.Clone(),
		subscribers: make(map[chan domain.Match]struct{}),
	}
	return nil
}

func (s *MatchStore) FindByCode(_ context.Context, code string) (domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.codes[code]
	if !ok {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	return s.docs[id].match.Clone(), nil
}

func (s *MatchStore) Get(_ context.Context, id string) (domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	return doc.match.Clone(), nil
}

func (s *MatchStore) Update(ctx context.Context, id string, patch domain.MatchPatch) error {
	_, err := s.Transact(ctx, id, func(domain.Match) (domain.MatchPatch, error) {
		return patch, nil
	})
	return err
}

func (s *MatchStore) Transact(_ context.Context, id string, fn func(domain.Match) (domain.MatchPatch, error)) (domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	patch, err := fn(doc.match.Clone())
	if err != nil {
		return domain.Match{}, err
	}
	doc.match.Apply(patch)
	doc.match.Version++
	s.broadcastLocked(doc)
	return doc.match.Clone(), nil
}

func (s *MatchStore) Subscribe(_ context.Context, id string) (<-chan domain.Match, func(), error) {
	s.mu.Lock()
	doc, ok := s.docs[id]
	if !ok {
		s.mu.Unlock()
		return nil, nil, domain.ErrMatchNotFound
	}
	ch := make(chan domain.Match, 8)
	doc.subscribers[ch] = struct{}{}
	ch <- doc.match.Clone()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, live := doc.subscribers[ch]; live {
			delete(doc.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *MatchStore) broadcastLocked(doc *matchDoc) {
	for ch := range doc.subscribers {
		snap := doc.match.Clone()
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow consumer only coalesces
			// updates instead of blocking the commit path.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
