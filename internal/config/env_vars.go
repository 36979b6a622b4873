package config

import (
	"os"
	"time"
)

const (
	appNameVar    = "APP_NAME"
	baseURLVar    = "API_BASE_URL"
	timeoutVar    = "REQUEST_TIMEOUT"
	folderEnvVar  = "FOLDER"
	logLevelVar   = "LOG_LEVEL"
	defaultAPIURL = "http://localhost:3006"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Tourbook")
}

// GetAPIBaseURL returns the base URL of the Tourbook backend
// (e.g. "https://api.tourbook.example.com")
func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(baseURLVar, defaultAPIURL)
}

func (EnvVars) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(GetEnv(timeoutVar, "10s"))
	if err != nil {
		return 10 * time.Second
	}
	return d
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
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
