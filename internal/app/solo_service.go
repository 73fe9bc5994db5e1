package app

import (
	"context"
	"fmt"
	"time"

	"trivia-live-service/internal/domain"
)

// SoloService records finished solo runs and serves the capped top-N
// leaderboard. Solo play reuses the scoring engine client-side and has no
// concurrency concerns beyond the store itself.
type SoloService struct {
	store         SoloScoreStore
	topN          int
	adminPasscode string
	now           func() time.Time
}

func NewSoloService(store SoloScoreStore, topN int, adminPasscode string) *SoloService {
	if topN <= 0 {
		topN = 20
	}
	return &SoloService{store: store, topN: topN, adminPasscode: adminPasscode, now: time.Now}
}

// NewSoloServiceWithClock is test-only for deterministic timestamps.
func NewSoloServiceWithClock(store SoloScoreStore, topN int, adminPasscode string, now func() time.Time) *SoloService {
	s := NewSoloService(store, topN, adminPasscode)
	s.now = now
	return s
}

// RecordScore stores one finished run.
func (s *SoloService) RecordScore(ctx context.Context, name string, score int, durationMs int64) (domain.SoloScore, error) {
	if score < 0 {
		return domain.SoloScore{}, fmt.Errorf("score must be non-negative")
	}
	if durationMs < 0 {
		durationMs = 0
	}
	entry := domain.SoloScore{
		Name:       SanitizeName(name),
		Score:      score,
		DurationMs: durationMs,
		CreatedAt:  s.now(),
	}
	if err := s.store.Add(ctx, entry); err != nil {
		return domain.SoloScore{}, err
	}
	return entry, nil
}

// Top returns up to n entries ordered by score descending, faster runs first
// on ties. n is capped at the configured leaderboard size.
func (s *SoloService) Top(ctx context.Context, n int) ([]domain.SoloScore, error) {
	if n <= 0 || n > s.topN {
		n = s.topN
	}
	return s.store.Top(ctx, n)
}

// Clear wipes the solo leaderboard. It is gated behind the admin passcode.
func (s *SoloService) Clear(ctx context.Context, passcode string) error {
	if s.adminPasscode == "" || passcode != s.adminPasscode {
		return domain.ErrInvalidPin
	}
	return s.store.Clear(ctx)
}
