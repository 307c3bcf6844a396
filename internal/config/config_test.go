package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	base := func(mutate func(*Config)) *Config {
		c := &Config{
			Env:        "development",
			Port:       "8460",
			JWTSecret:  "secure-secret-at-least-32-chars-long",
			DBPassword: "secure-password",
			DBSSLMode:  "disable",
			RedisURL:   "localhost:6379",
		}
		if mutate != nil {
			mutate(c)
		}
		return c
	}

	tests := []struct {
		name        string
		config      *Config
		expectError bool
	}{
		{"Valid development config", base(nil), false},
		{"Missing port", base(func(c *Config) { c.Port = "" }), true},
		{"Missing JWT secret", base(func(c *Config) { c.JWTSecret = "" }), true},
		{"Production with default JWT secret", base(func(c *Config) {
			c.Env = "production"
			c.JWTSecret = "your-secret-key-change-in-production"
		}), true},
		{"Production with short JWT secret", base(func(c *Config) {
			c.Env = "production"
			c.JWTSecret = "tooshort"
		}), true},
		{"Production with default DB password", base(func(c *Config) {
			c.Env = "production"
			c.DBPassword = "password"
		}), true},
		{"Valid production config", base(func(c *Config) {
			c.Env = "production"
			c.DBSSLMode = "require"
		}), false},
		{"Development with short JWT secret warns but passes", base(func(c *Config) {
			c.JWTSecret = "short-but-ok-in-dev"
		}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8460", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisURL)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.JobsEnabled)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("PORT")
	defer os.Unsetenv("JOBS_ENABLED")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("PORT", "9999")
	os.Setenv("JOBS_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.False(t, cfg.JobsEnabled)
}
