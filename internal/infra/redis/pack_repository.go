package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-live-service/internal/domain"
)

// PackLoader fetches pack content from a backing store (e.g., Postgres).
type PackLoader interface {
	LoadPack(ctx context.Context, packID string) (domain.Pack, error)
}

// PackRepository caches packs as JSON blobs in Redis (pack:{id}) and falls
// back to a loader on cache miss. Misses are collapsed with singleflight and
// cache entries expire with a jittered TTL.
type PackRepository struct {
	client *redis.Client
	loader PackLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewPackRepository(client *redis.Client, loader PackLoader, ttl time.Duration) *PackRepository {
	return &PackRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PackRepository) GetPack(ctx context.Context, packID string) (domain.Pack, error) {
	key := packKey(packID)

	if pack, ok := r.fromCache(ctx, key); ok {
		return pack, nil
	}

	result, err, _ := r.sf.Do(packID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if pack, ok := r.fromCache(ctx, key); ok {
			return pack, nil
		}

		pack, err := r.loader.LoadPack(ctx, packID)
		if err != nil {
			return domain.Pack{}, err
		}

		data, err := json.Marshal(pack)
		if err != nil {
			return domain.Pack{}, fmt.Errorf("marshal pack: %w", err)
		}
		_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		return pack, nil
	})
	if err != nil {
		return domain.Pack{}, err
	}
	return result.(domain.Pack), nil
}

func (r *PackRepository) fromCache(ctx context.Context, key string) (domain.Pack, bool) {
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return domain.Pack{}, false
	}
	var pack domain.Pack
	if err := json.Unmarshal([]byte(raw), &pack); err != nil {
		return domain.Pack{}, false
	}
	return pack, true
}

func (r *PackRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func packKey(packID string) string {
	return "pack:" + packID
}
