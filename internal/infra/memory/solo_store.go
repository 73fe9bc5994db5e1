package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trivia-live-service/internal/domain"
)

// SoloScoreStore keeps the solo leaderboard in process memory: ordered by
// score descending with faster runs first on ties, pruned by retention
// window and capped in size on every write.
type SoloScoreStore struct {
	retention  time.Duration
	maxEntries int
	clock      func() time.Time

	mu     sync.Mutex
	scores []domain.SoloScore
}

func NewSoloScoreStore(retention time.Duration, maxEntries int) *SoloScoreStore {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &SoloScoreStore{retention: retention, maxEntries: maxEntries, clock: time.Now}
}

func (s *SoloScoreStore) Add(_ context.Context, score domain.SoloScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scores = append(s.scores, score)
	if s.retention > 0 {
		cutoff := s.clock().Add(-s.retention)
		kept := s.scores[:0]
		for _, sc := range s.scores {
			if !sc.CreatedAt.Before(cutoff) {
				kept = append(kept, sc)
			}
		}
		s.scores = kept
	}
	sort.Slice(s.scores, func(i, j int) bool {
		if s.scores[i].Score != s.scores[j].Score {
			return s.scores[i].Score > s.scores[j].Score
		}
		if s.scores[i].DurationMs != s.scores[j].DurationMs {
			return s.scores[i].DurationMs < s.scores[j].DurationMs
		}
		return s.scores[i].CreatedAt.Before(s.scores[j].CreatedAt)
	})
	if len(s.scores) > s.maxEntries {
		s.scores = s.scores[:s.maxEntries]
	}
	return nil
}

func (s *SoloScoreStore) Top(_ context.Context, n int) ([]domain.SoloScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.scores) {
		n = len(s.scores)
	}
	out := make([]domain.SoloScore, n)
	copy(out, s.scores[:n])
	return out, nil
}

func (s *SoloScoreStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = nil
	return nil
}
