package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-live-service/internal/app"
	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/infra/memory"
)

func TestSoloTopOrdering(t *testing.T) {
	ctx := context.Background()
	service := newSoloService(t, 3)

	runs := []struct {
		name     string
		score    int
		duration int64
	}{
		{"slow-high", 500, 90_000},
		{"fast-high", 500, 60_000},
		{"mid", 300, 45_000},
		{"low", 100, 30_000},
	}
	for _, r := range runs {
		if _, err := service.RecordScore(ctx, r.name, r.score, r.duration); err != nil {
			t.Fatalf("record %s: %v", r.name, err)
		}
	}

	top, err := service.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected the requested size capped at 3, got %d", len(top))
	}
	if top[0].Name != "fast-high" || top[1].Name != "slow-high" || top[2].Name != "mid" {
		t.Fatalf("unexpected order: %+v", top)
	}
}

func TestSoloClearRequiresPasscode(t *testing.T) {
	ctx := context.Background()
	service := newSoloService(t, 20)
	if _, err := service.RecordScore(ctx, "Alice", 200, 1000); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := service.Clear(ctx, "wrong"); !errors.Is(err, domain.ErrInvalidPin) {
		t.Fatalf("expected ErrInvalidPin, got %v", err)
	}
	if err := service.Clear(ctx, "open-sesame"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	top, _ := service.Top(ctx, 5)
	if len(top) != 0 {
		t.Fatalf("expected empty leaderboard after clear, got %d entries", len(top))
	}
}

func TestSoloRejectsNegativeScore(t *testing.T) {
	service := newSoloService(t, 20)
	if _, err := service.RecordScore(context.Background(), "Mallory", -5, 1000); err == nil {
		t.Fatalf("expected rejection of negative score")
	}
}

func newSoloService(t *testing.T, topN int) *app.SoloService {
	t.Helper()
	store := memory.NewSoloScoreStore(7*24*time.Hour, 100)
	return app.NewSoloService(store, topN, "open-sesame")
}
