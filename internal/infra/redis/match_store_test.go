package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"trivia-live-service/internal/domain"
)

func newTestClient(t *testing.T) *goredis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestMatchStoreCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	store := NewMatchStore(newTestClient(t))

	if err := store.Create(ctx, testMatch("m1", "CODE1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, testMatch("m2", "CODE1")); !errors.Is(err, domain.ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}

	m, err := store.FindByCode(ctx, "CODE1")
	if err != nil {
		t.Fatalf("find by code: %v", err)
	}
	if m.ID != "m1" || m.Version != 1 || m.CreatedAt.IsZero() {
		t.Fatalf("unexpected document: %+v", m)
	}

	if _, err := store.FindByCode(ctx, "NOPE"); !errors.Is(err, domain.ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, domain.ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}

func TestMatchStoreTransactCommits(t *testing.T) {
	ctx := context.Background()
	store := NewMatchStore(newTestClient(t))
	if err := store.Create(ctx, testMatch("m1", "CODE1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	state := domain.StateOpen
	q := 0
	committed, err := store.Transact(ctx, "m1", func(m domain.Match) (domain.MatchPatch, error) {
		if m.State != domain.StateLobby {
			t.Fatalf("fn must observe the committed document, got %s", m.State)
		}
		return domain.MatchPatch{State: &state, QIndex: &q}, nil
	})
	if err != nil {
		t.Fatalf("transact: %v", err)
	}
	if committed.State != domain.StateOpen || committed.Version != 2 {
		t.Fatalf("unexpected commit result: %+v", committed)
	}

	m, _ := store.Get(ctx, "m1")
	if m.State != domain.StateOpen || m.QIndex != 0 || m.Version != 2 {
		t.Fatalf("commit not persisted: %+v", m)
	}
}

func TestMatchStoreTransactErrorDoesNotCommit(t *testing.T) {
	ctx := context.Background()
	store := NewMatchStore(newTestClient(t))
	if err := store.Create(ctx, testMatch("m1", "CODE1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	state := domain.StateEnded
	if _, err := store.Transact(ctx, "m1", func(domain.Match) (domain.MatchPatch, error) {
		return domain.MatchPatch{State: &state}, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	m, _ := store.Get(ctx, "m1")
	if m.State != domain.StateLobby || m.Version != 1 {
		t.Fatalf("failed transaction mutated the document: %+v", m)
	}
}

func TestMatchStoreTransactMissingMatch(t *testing.T) {
	store := NewMatchStore(newTestClient(t))
	_, err := store.Transact(context.Background(), "nope", func(domain.Match) (domain.MatchPatch, error) {
		return domain.MatchPatch{}, nil
	})
	if !errors.Is(err, domain.ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}

func TestMatchStoreSubscribeDeliversCommits(t *testing.T) {
	ctx := context.Background()
	store := NewMatchStore(newTestClient(t))
	if err := store.Create(ctx, testMatch("m1", "CODE1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	ch, cancel, err := store.Subscribe(ctx, "m1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := waitMatch(t, ch)
	if initial.Version != 1 {
		t.Fatalf("expected initial snapshot, got version %d", initial.Version)
	}

	state := domain.StateOpen
	q := 0
	if _, err := store.Transact(ctx, "m1", func(domain.Match) (domain.MatchPatch, error) {
		return domain.MatchPatch{State: &state, QIndex: &q}, nil
	}); err != nil {
		t.Fatalf("transact: %v", err)
	}

	next := waitMatch(t, ch)
	if next.State != domain.StateOpen || next.Version != 2 {
		t.Fatalf("expected published commit, got %+v", next)
	}
}

func TestMatchStoreSubscribeMissingMatch(t *testing.T) {
	store := NewMatchStore(newTestClient(t))
	if _, _, err := store.Subscribe(context.Background(), "nope"); !errors.Is(err, domain.ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}

func waitMatch(t *testing.T, ch <-chan domain.Match) domain.Match {
	t.Helper()
	select {
	case m, ok := <-ch:
		if !ok {
			t.Fatalf("snapshot channel closed unexpectedly")
		}
		return m
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return domain.Match{}
	}
}

func testMatch(id, code string) domain.Match {
	return domain.Match{
		ID:      id,
		Code:    code,
		HostPin: "1234",
		State:   domain.StateLobby,
		QIndex:  -1,
		Questions: []domain.Question{
			{Prompt: "q", Answers: []string{"a", "b"}, CorrectIndex: 1, TimeLimitSec: 25},
		},
		Players: map[string]domain.Player{},
		Answers: map[int]map[string]domain.AnswerRecord{},
	}
}
