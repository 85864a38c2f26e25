package refreshtokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/orbit/internal/common"
	"github.com/dmitrijs2005/orbit/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces refresh tokens in Redis.
const KeyPrefix = "rt_"

// RedisRepository keeps refresh tokens as user IDs under expiring keys.
// Expiry is enforced by Redis itself.
type RedisRepository struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewRedisRepository(rdb redis.Cmdable) *RedisRepository {
	return &RedisRepository{rdb: rdb, now: time.Now}
}

func key(token string) string { return KeyPrefix + token }

func (r *RedisRepository) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	if err := r.rdb.Set(ctx, key(token), userID, validity).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	var (
		get *redis.StringCmd
		ttl *redis.DurationCmd
	)
	_, err := r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, key(token))
		ttl = p.PTTL(ctx, key(token))
		return nil
	})
	return r.result(token, get, ttl, err)
}

// Consume reads the remaining TTL and deletes the key in one MULTI/EXEC.
func (r *RedisRepository) Consume(ctx context.Context, token string) (*models.RefreshToken, error) {
	var (
		get *redis.StringCmd
		ttl *redis.DurationCmd
	)
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		ttl = p.PTTL(ctx, key(token))
		get = p.GetDel(ctx, key(token))
		return nil
	})
	return r.result(token, get, ttl, err)
}

func (r *RedisRepository) result(token string, get *redis.StringCmd, ttl *redis.DurationCmd, err error) (*models.RefreshToken, error) {
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	// a key without a TTL leaves Expires zero, meaning it never expires
	rt := &models.RefreshToken{Token: token, UserID: get.Val()}
	if d := ttl.Val(); d > 0 {
		rt.Expires = r.now().Add(d)
	}
	return rt, nil
}

func (r *RedisRepository) Delete(ctx context.Context, token string) error {
	if err := r.rdb.Del(ctx, key(token)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
