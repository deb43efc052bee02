// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It maps OS environment variables into a strongly-typed struct with
'caarlos0/env'. A '.env' file in the working directory is read first with
'joho/godotenv'; real environment variables always take precedence over it.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - Fail Fast: Missing secrets or connection strings abort startup.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultDotEnvPath is the file consulted by [Load].
const DefaultDotEnvPath = ".env"

// # Configuration Schema

// Config holds all runtime configuration for the Quill API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Key-Value Cache (Redis), used for token revocation
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Token signing. Two distinct secrets; absence of either is fatal.
	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET,required,notEmpty"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET,required,notEmpty"`
	JWTAccessTTL     time.Duration `env:"JWT_ACCESS_TTL"  envDefault:"7h"`
	JWTRefreshTTL    time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`

	// RevokeOnRotate makes refresh tokens single-use.
	RevokeOnRotate bool `env:"AUTH_REVOKE_ON_ROTATE" envDefault:"false"`

	// Object Storage (S3-compatible) for post cover images
	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION"   envDefault:"auto"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`

	// Cross-Origin Resource Sharing
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`
}

// # Configuration Loading

// Load parses the process environment (plus ./.env) into a [Config].
func Load() (*Config, error) {
	return LoadFrom(DefaultDotEnvPath)
}

// LoadFrom is [Load] with an explicit dotenv path. A missing file is not an error.
func LoadFrom(dotEnvPath string) (*Config, error) {
	environment, err := Environment(dotEnvPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return nil, errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	return cfg, nil
}

// Environment merges the dotenv file at path with the process environment.
// Process variables override file values.
func Environment(dotEnvPath string) (map[string]string, error) {
	merged := make(map[string]string)

	fileValues, err := godotenv.Read(dotEnvPath)
	switch {
	case err == nil:
		maps.Copy(merged, fileValues)
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: failed to read %s: %w", dotEnvPath, err)
	}

	maps.Copy(merged, env.ToMap(os.Environ()))
	return merged, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins lists the extra CORS origins accepted outside development.
func (c *Config) AllowedOrigins() []string {
	return c.ExtraOrigins
}

// StorageEnabled reports whether cover uploads can be served.
func (c *Config) StorageEnabled() bool {
	return c.S3Bucket != ""
}
