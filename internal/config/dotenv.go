package config

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DefaultDotEnvPath is read by LoadDotEnv when no path is given.
func DefaultDotEnvPath() string {
	return filepath.Join(HomeDir(), "env")
}

// LoadDotEnv loads variables from a dotenv file without overriding ones already set
// in the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DefaultDotEnvPath()
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
