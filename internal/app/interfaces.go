package app

import (
	"context"

	"trivia-live-service/internal/domain"
)

// MatchStore owns the canonical match document and provides the atomic
// primitives the protocols are built on (in-memory, Redis, etc).
type MatchStore interface {
	// Create inserts a new match document. The join code must be unique among
	// stored matches; Create fails with domain.ErrDuplicateCode otherwise.
	// The store assigns CreatedAt and the initial version.
	Create(ctx context.Context, m domain.Match) error

	// FindByCode is a point lookup by join code.
	FindByCode(ctx context.Context, code string) (domain.Match, error)

	// Get returns the current match document or domain.ErrMatchNotFound.
	Get(ctx context.Context, id string) (domain.Match, error)

	// Update applies an unconditional per-field merge. It must not be used
	// where a cross-field invariant is at stake; those go through Transact.
	Update(ctx context.Context, id string, patch domain.MatchPatch) error

	// Transact runs fn against a consistent snapshot and applies the returned
	// patch atomically, retrying internally on write conflict. fn may run more
	// than once and must be free of externally observable side effects.
	// Returns the committed document.
	Transact(ctx context.Context, id string, fn func(domain.Match) (domain.MatchPatch, error)) (domain.Match, error)

	// Subscribe delivers the current document immediately and then a causally
	// non-decreasing sequence of snapshots on every committed change. Rapid
	// updates may be coalesced. The cancel func is the only way to stop
	// delivery.
	Subscribe(ctx context.Context, id string) (<-chan domain.Match, func(), error)
}

// PackRepository loads question pack content (from cache/backing store).
type PackRepository interface {
	GetPack(ctx context.Context, packID string) (domain.Pack, error)
}

// SoloScoreStore keeps the capped solo top-N leaderboard.
type SoloScoreStore interface {
	Add(ctx context.Context, score domain.SoloScore) error
	Top(ctx context.Context, n int) ([]domain.SoloScore, error)
	Clear(ctx context.Context) error
}
