package config

type Config interface {
	EnvConfig
	StorageConfig
	HTTPConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetLogLevel() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Storage
	HTTP
}

func New() Config {
	return mainConfig{}
}
