package config

import (
	"os"
	"path/filepath"
)

// StateConfig controls where session snapshots are persisted between runs.
type StateConfig interface {
	GetStateDir() string
	GetStateKey() string
	GetRedisAddr() string
	GetSealSecret() string
}

type State struct{}

var _ StateConfig = State{}

func (State) GetStateDir() string {
	homeDir, _ := os.UserHomeDir()
	return GetEnv("STATE_DIR", filepath.Join(homeDir, ".services-client"))
}

func (State) GetStateKey() string {
	return GetEnv("STATE_KEY", "default")
}

// GetRedisAddr returns the redis address for snapshot storage. Empty means use files.
func (State) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

// GetSealSecret returns the key used to seal persisted snapshots, falling back to the API key.
func (State) GetSealSecret() string {
	return GetEnv("SEAL_SECRET", Signing{}.GetAPIKey())
}
