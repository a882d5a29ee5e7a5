package config

import "time"

type Config interface {
	EnvConfig
	SigningConfig
	ClientConfig
	StateConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetSiteURL() string
	GetLogLevel() string
	GetEnv() string
}

// SigningConfig holds the key-authentication material shared with the remote site.
type SigningConfig interface {
	GetAPIKey() string
	GetDomain() string
}

type ClientConfig interface {
	GetConnectPolicy() string
	GetServicePath() string
	GetUploadPath() string
	GetRequestTimeout() time.Duration
	GetRateLimit() float64
	GetRateBurst() int
}

type mainConfig struct {
	EnvVars
	Signing
	Client
	State
}

func New() Config {
	return mainConfig{}
}
