package config

import "time"

type HTTPConfig interface {
	GetHTTPTimeout() time.Duration
}

type HTTP struct{}

var _ HTTPConfig = HTTP{}

// GetHTTPTimeout bounds every request, including the token refresh call.
func (HTTP) GetHTTPTimeout() time.Duration {
	d, err := time.ParseDuration(GetEnv("WEEB_HTTP_TIMEOUT", "15s"))
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}
