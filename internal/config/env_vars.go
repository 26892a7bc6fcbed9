package config

import (
	"os"
	"strings"
)

const (
	appNameVar    = "APP_NAME"
	apiBaseURLVar = "WEEB_API_URL"
	logLevelVar   = "WEEB_LOG_LEVEL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Weeb")
}

// GetAPIBaseURL returns the root of the remote API without a trailing slash
// (e.g., "https://api.weeb.example"). Endpoint paths are appended to it.
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, "http://localhost:8000"), "/")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
