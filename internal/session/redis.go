package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is the session lifetime used when none is configured.
const DefaultTTL = 12 * time.Hour

// RedisPersister stores session values in one Redis hash per session. The
// hash expires ttl after the last write.
type RedisPersister struct {
	client *redis.Client
	id     string
	ttl    time.Duration
}

// NewRedisPersister returns a persister for session id. An empty id gets a
// fresh random one; a non-positive ttl uses DefaultTTL.
func NewRedisPersister(client *redis.Client, id string, ttl time.Duration) *RedisPersister {
	if id == "" {
		id = NewID()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisPersister{client: client, id: id, ttl: ttl}
}

// NewID returns a random session identifier.
func NewID() string {
	return uuid.NewString()
}

// ID returns the session identifier.
func (p *RedisPersister) ID() string {
	return p.id
}

// Load returns every value stored for the session. A missing or expired
// session yields an empty map.
func (p *RedisPersister) Load(ctx context.Context) (map[string]string, error) {
	values, err := p.client.HGetAll(ctx, p.key()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return values, nil
}

// Save writes one value and refreshes the session expiry.
func (p *RedisPersister) Save(ctx context.Context, name, value string) error {
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, p.key(), name, value)
		pipe.Expire(ctx, p.key(), p.ttl)
		return nil
	})
	return err
}

// Delete removes one value.
func (p *RedisPersister) Delete(ctx context.Context, name string) error {
	if err := p.client.HDel(ctx, p.key(), name).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// Destroy removes the whole session.
func (p *RedisPersister) Destroy(ctx context.Context) error {
	if err := p.client.Del(ctx, p.key()).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (p *RedisPersister) key() string {
	return "folio:session:" + p.id
}
