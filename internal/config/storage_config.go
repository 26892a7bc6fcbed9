package config

import (
	"os"
	"path/filepath"
)

// StorageBackend selects where the refresh credential and profile are persisted.
type StorageBackend string

const (
	StorageBolt   StorageBackend = "bolt"
	StorageRedis  StorageBackend = "redis"
	StorageMemory StorageBackend = "memory"
)

type StorageConfig interface {
	GetStorageBackend() StorageBackend
	GetStoragePath() string
	GetRedisAddr() string
	GetRedisPrefix() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetStorageBackend() StorageBackend {
	switch b := StorageBackend(GetEnv("WEEB_STORAGE", string(StorageBolt))); b {
	case StorageBolt, StorageRedis, StorageMemory:
		return b
	default:
		return StorageBolt
	}
}

func (Storage) GetStoragePath() string {
	return GetEnv("WEEB_STORAGE_PATH", filepath.Join(HomeDir(), "session.db"))
}

func (Storage) GetRedisAddr() string {
	return GetEnv("WEEB_REDIS_ADDR", "localhost:6379")
}

func (Storage) GetRedisPrefix() string {
	return GetEnv("WEEB_REDIS_PREFIX", "weeb:")
}

// HomeDir is the per-user directory holding the dotenv file and the session database.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".weeb"
	}
	return filepath.Join(home, ".weeb")
}
