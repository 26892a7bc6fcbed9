package redisrepo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/weeb-client/internal/errors"
	"github.com/jrsteele09/weeb-client/token"
)

var _ token.Repo = (*Repo)(nil)

const opTimeout = 2 * time.Second

// Repo persists durable session entries in Redis under a key prefix, so several
// profiles or users can share one server.
type Repo struct {
	rdb    redis.UniversalClient
	prefix string
}

func New(rdb redis.UniversalClient, prefix string) *Repo {
	return &Repo{rdb: rdb, prefix: prefix}
}

func (r *Repo) key(k string) string {
	return r.prefix + k
}

func (r *Repo) Load(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	v, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get %s", key)
	}
	return v, nil
}

func (r *Repo) Save(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return errors.Wrapf(r.rdb.Set(ctx, r.key(key), value, 0).Err(), "redis set %s", key)
}

func (r *Repo) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return errors.Wrapf(r.rdb.Del(ctx, r.key(key)).Err(), "redis del %s", key)
}
