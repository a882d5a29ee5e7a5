package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the prefix for environment overrides read by Load.
// Nesting uses a double underscore: SERVICES_SIGNING__API_KEY -> signing.api_key.
const DefaultEnvPrefix = "SERVICES_"

// FileConfig is a Config read from a YAML file and SERVICES_ environment variables.
// Keys missing from both sources keep the EnvVars defaults.
type FileConfig struct {
	Port     string `koanf:"port"`
	AppName  string `koanf:"app_name"`
	SiteURL  string `koanf:"site_url"`
	LogLevel string `koanf:"log_level"`
	Env      string `koanf:"env"`

	Signing struct {
		APIKey string `koanf:"api_key"`
		Domain string `koanf:"domain"`
	} `koanf:"signing"`

	Client struct {
		ConnectPolicy  string        `koanf:"connect_policy"`
		ServicePath    string        `koanf:"service_path"`
		UploadPath     string        `koanf:"upload_path"`
		RequestTimeout time.Duration `koanf:"request_timeout"`
		RateLimit      float64       `koanf:"rate_limit"`
		RateBurst      int           `koanf:"rate_burst"`
	} `koanf:"client"`

	State struct {
		Dir        string `koanf:"dir"`
		Key        string `koanf:"key"`
		RedisAddr  string `koanf:"redis_addr"`
		SealSecret string `koanf:"seal_secret"`
	} `koanf:"state"`
}

var _ Config = (*FileConfig)(nil)

// Load reads configuration with priority Env > File > Default. An empty path skips the file.
func Load(path string) (*FileConfig, error) {
	cfg := defaults()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, DefaultEnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}
	if err := k.Load(env.Provider(DefaultEnvPrefix, ".", envTransformer), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func defaults() *FileConfig {
	c := mainConfig{}
	cfg := &FileConfig{
		Port:     c.GetPort(),
		AppName:  c.GetAppName(),
		SiteURL:  c.GetSiteURL(),
		LogLevel: c.GetLogLevel(),
		Env:      c.EnvVars.GetEnv(),
	}
	cfg.Signing.APIKey = c.GetAPIKey()
	cfg.Signing.Domain = c.GetDomain()
	cfg.Client.ConnectPolicy = c.GetConnectPolicy()
	cfg.Client.ServicePath = c.GetServicePath()
	cfg.Client.UploadPath = c.GetUploadPath()
	cfg.Client.RequestTimeout = c.GetRequestTimeout()
	cfg.Client.RateLimit = c.GetRateLimit()
	cfg.Client.RateBurst = c.GetRateBurst()
	cfg.State.Dir = c.GetStateDir()
	cfg.State.Key = c.GetStateKey()
	cfg.State.RedisAddr = c.GetRedisAddr()
	cfg.State.SealSecret = c.GetSealSecret()
	return cfg
}

func (c *FileConfig) GetPort() string                  { return c.Port }
func (c *FileConfig) GetAppName() string               { return c.AppName }
func (c *FileConfig) GetSiteURL() string               { return c.SiteURL }
func (c *FileConfig) GetLogLevel() string              { return c.LogLevel }
func (c *FileConfig) GetEnv() string                   { return c.Env }
func (c *FileConfig) GetAPIKey() string                { return c.Signing.APIKey }
func (c *FileConfig) GetDomain() string                { return c.Signing.Domain }
func (c *FileConfig) GetConnectPolicy() string         { return c.Client.ConnectPolicy }
func (c *FileConfig) GetServicePath() string           { return c.Client.ServicePath }
func (c *FileConfig) GetUploadPath() string            { return c.Client.UploadPath }
func (c *FileConfig) GetRequestTimeout() time.Duration { return c.Client.RequestTimeout }
func (c *FileConfig) GetRateLimit() float64            { return c.Client.RateLimit }
func (c *FileConfig) GetRateBurst() int                { return c.Client.RateBurst }
func (c *FileConfig) GetStateDir() string              { return c.State.Dir }
func (c *FileConfig) GetStateKey() string              { return c.State.Key }
func (c *FileConfig) GetRedisAddr() string             { return c.State.RedisAddr }

// GetSealSecret falls back to the API key when no dedicated seal secret is configured.
func (c *FileConfig) GetSealSecret() string {
	if c.State.SealSecret != "" {
		return c.State.SealSecret
	}
	return c.Signing.APIKey
}
