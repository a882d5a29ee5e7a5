package redisstaterepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/jrsteele09/go-services-client/sessions"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "services-client:session:"

var _ sessions.Repo = (*RedisStateRepo)(nil)

// RedisStateRepo is a Redis implementation of the sessions.Repo interface.
// Snapshots are stored sealed.
type RedisStateRepo struct {
	client *redis.Client
	sealer *sessions.Sealer
	prefix string
	ttl    time.Duration
}

// Option configures a RedisStateRepo.
type Option func(*RedisStateRepo)

// WithTTL expires stored snapshots after d. Zero keeps them until deleted.
func WithTTL(d time.Duration) Option {
	return func(r *RedisStateRepo) {
		r.ttl = d
	}
}

func WithPrefix(prefix string) Option {
	return func(r *RedisStateRepo) {
		r.prefix = prefix
	}
}

// NewRedisStateRepo creates a new Redis state repo
func NewRedisStateRepo(client *redis.Client, sealer *sessions.Sealer, opts ...Option) *RedisStateRepo {
	r := &RedisStateRepo{
		client: client,
		sealer: sealer,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisStateRepo) Save(ctx context.Context, key string, state sessions.State) error {
	sealed, err := r.sealer.Seal(state)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.prefix+key, sealed, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

func (r *RedisStateRepo) Load(ctx context.Context, key string) (sessions.State, error) {
	sealed, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return sessions.State{}, svcerrors.ErrSessionNotFound
	}
	if err != nil {
		return sessions.State{}, fmt.Errorf("failed to load session state: %w", err)
	}
	return r.sealer.Open(sealed)
}

func (r *RedisStateRepo) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete session state: %w", err)
	}
	return nil
}
