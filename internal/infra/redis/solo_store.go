package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"trivia-live-service/internal/domain"
)

const (
	soloScoresKey  = "solo:scores"
	soloCreatedKey = "solo:created"
	// Duration contribution to the rank score; runs longer than this are
	// ranked as if they took the whole window.
	soloDurationCap = int64(1e8)
)

// SoloScoreStore keeps the solo leaderboard in a Redis sorted set. The rank
// score folds score and duration into one value (score desc, faster runs
// first on ties); a second sorted set indexed by creation time drives
// retention pruning.
type SoloScoreStore struct {
	client     *redis.Client
	retention  time.Duration
	maxEntries int
	clock      func() time.Time
}

func NewSoloScoreStore(client *redis.Client, retention time.Duration, maxEntries int) *SoloScoreStore {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &SoloScoreStore{client: client, retention: retention, maxEntries: maxEntries, clock: time.Now}
}

type soloMember struct {
	ID string `json:"id"`
	domain.SoloScore
}

func (s *SoloScoreStore) Add(ctx context.Context, score domain.SoloScore) error {
	member, err := json.Marshal(soloMember{ID: uuid.New().String(), SoloScore: score})
	if err != nil {
		return fmt.Errorf("marshal solo score: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, soloScoresKey, redis.Z{Score: rankScore(score), Member: member})
	pipe.ZAdd(ctx, soloCreatedKey, redis.Z{Score: float64(score.CreatedAt.UnixMilli()), Member: member})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store solo score: %w", err)
	}

	if err := s.pruneExpired(ctx); err != nil {
		return err
	}
	return s.pruneOverflow(ctx)
}

func (s *SoloScoreStore) Top(ctx context.Context, n int) ([]domain.SoloScore, error) {
	if n <= 0 {
		return nil, nil
	}
	members, err := s.client.ZRevRange(ctx, soloScoresKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read solo leaderboard: %w", err)
	}
	out := make([]domain.SoloScore, 0, len(members))
	for _, raw := range members {
		var m soloMember
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			continue
		}
		out = append(out, m.SoloScore)
	}
	return out, nil
}

func (s *SoloScoreStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, soloScoresKey, soloCreatedKey).Err(); err != nil {
		return fmt.Errorf("clear solo leaderboard: %w", err)
	}
	return nil
}

func (s *SoloScoreStore) pruneExpired(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	cutoff := s.clock().Add(-s.retention).UnixMilli()
	expired, err := s.client.ZRangeByScore(ctx, soloCreatedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff),
	}).Result()
	if err != nil || len(expired) == 0 {
		return err
	}
	members := make([]interface{}, len(expired))
	for i, m := range expired {
		members[i] = m
	}
	pipe := s.client.Pipeline()
	pipe.ZRem(ctx, soloScoresKey, members...)
	pipe.ZRem(ctx, soloCreatedKey, members...)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *SoloScoreStore) pruneOverflow(ctx context.Context) error {
	card, err := s.client.ZCard(ctx, soloScoresKey).Result()
	if err != nil || card <= int64(s.maxEntries) {
		return err
	}
	lowest, err := s.client.ZRange(ctx, soloScoresKey, 0, card-int64(s.maxEntries)-1).Result()
	if err != nil || len(lowest) == 0 {
		return err
	}
	members := make([]interface{}, len(lowest))
	for i, m := range lowest {
		members[i] = m
	}
	pipe := s.client.Pipeline()
	pipe.ZRem(ctx, soloScoresKey, members...)
	pipe.ZRem(ctx, soloCreatedKey, members...)
	_, err = pipe.Exec(ctx)
	return err
}

func rankScore(score domain.SoloScore) float64 {
	d := score.DurationMs
	if d < 0 {
		d = 0
	}
	if d >= soloDurationCap {
		d = soloDurationCap - 1
	}
	return float64(score.Score)*float64(soloDurationCap) + float64(soloDurationCap-d)
}
