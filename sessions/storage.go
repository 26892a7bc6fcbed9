package sessions

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/weeb-client/internal/config"
	"github.com/jrsteele09/weeb-client/token"
	"github.com/jrsteele09/weeb-client/token/boltrepo"
	"github.com/jrsteele09/weeb-client/token/redisrepo"
	tokenrepofake "github.com/jrsteele09/weeb-client/token/repofake"
)

// OpenRepo opens the durable credential storage selected by cfg. The returned func
// releases it.
func OpenRepo(cfg config.StorageConfig) (token.Repo, func(), error) {
	switch backend := cfg.GetStorageBackend(); backend {
	case config.StorageMemory:
		log.Warn().Msg("Using in-memory credential storage, the session will not survive a restart")
		return tokenrepofake.NewFakeTokenRepo(), func() {}, nil

	case config.StorageRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.GetRedisAddr()})
		log.Debug().Str("addr", cfg.GetRedisAddr()).Str("prefix", cfg.GetRedisPrefix()).Msg("Using redis credential storage")
		return redisrepo.New(rdb, cfg.GetRedisPrefix()), func() { _ = rdb.Close() }, nil

	case config.StorageBolt:
		repo, err := boltrepo.Open(cfg.GetStoragePath())
		if err != nil {
			return nil, nil, err
		}
		log.Debug().Str("path", cfg.GetStoragePath()).Msg("Using bolt credential storage")
		return repo, repo.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
