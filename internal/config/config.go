package config

import "time"

type Config interface {
	EnvConfig
	GoogleConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetDataFolder() string
	GetLogLevel() string
	GetEnv() string
}

type GoogleConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleRedirectURL() string
}

type mainConfig struct {
	EnvVars
	Google
}

func New() Config {
	return mainConfig{}
}
