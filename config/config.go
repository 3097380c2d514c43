package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the authorization server.
// Tags use mapstructure for Viper unmarshalling.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	Issuer      string `mapstructure:"ISSUER"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"` // empty selects the in-memory token cache
	RedisPrefix string `mapstructure:"REDIS_PREFIX"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	AuthCodeTTLSec      int `mapstructure:"AUTH_CODE_TTL_SEC"`
	PendingAuthTTLSec   int `mapstructure:"PENDING_AUTH_TTL_SEC"`
	AccessTokenTTLMin   int `mapstructure:"ACCESS_TOKEN_TTL_MIN"`
	RefreshTokenTTLHour int `mapstructure:"REFRESH_TOKEN_TTL_HOUR"`
	SweepIntervalMin    int `mapstructure:"SWEEP_INTERVAL_MIN"`

	// Policy knobs. Rotation invalidates the presented refresh token on
	// every refresh; plain PKCE is rejected unless explicitly enabled.
	RotateRefreshTokens bool `mapstructure:"ROTATE_REFRESH_TOKENS"`
	AllowPlainPKCE      bool `mapstructure:"ALLOW_PLAIN_PKCE"`
}

// AuthCodeTTL returns the authorization code lifetime as a duration.
func (c *ServerConfig) AuthCodeTTL() time.Duration {
	return time.Duration(c.AuthCodeTTLSec) * time.Second
}

// PendingAuthTTL returns the pending-authorization lifetime as a duration.
func (c *ServerConfig) PendingAuthTTL() time.Duration {
	return time.Duration(c.PendingAuthTTLSec) * time.Second
}

// AccessTokenTTL returns the access token lifetime as a duration.
func (c *ServerConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMin) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime as a duration.
func (c *ServerConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLHour) * time.Hour
}

// SweepInterval returns how often the expiry sweeper runs.
func (c *ServerConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMin) * time.Minute
}

// LoadConfig reads configuration from file, environment variables, and
// defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/storeauth/")
	v.AddConfigPath("$HOME/.storeauth")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("ISSUER", "http://localhost:8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/storeauth_dev")
	v.SetDefault("MONGO_DB_NAME", "storeauth_dev")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PREFIX", "storeauth")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("AUTH_CODE_TTL_SEC", 600)
	v.SetDefault("PENDING_AUTH_TTL_SEC", 600)
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 60)
	v.SetDefault("REFRESH_TOKEN_TTL_HOUR", 720) // 30 days
	v.SetDefault("SWEEP_INTERVAL_MIN", 15)
	v.SetDefault("ROTATE_REFRESH_TOKENS", true)
	v.SetDefault("ALLOW_PLAIN_PKCE", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file found: defaults and env vars apply.
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
