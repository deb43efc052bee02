// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"

	"github.com/taibuivan/quill/internal/platform/config"
)

// Config holds the CLI settings. Flags override environment variables,
// which override ./.env.
type Config struct {
	// API base URL
	APIURL string `env:"QUILL_API_URL" envDefault:"http://localhost:8080"`

	// Where the token pair is kept between invocations
	SessionFile string `env:"QUILL_SESSION_FILE"`

	// Debug logging to stderr
	Verbose bool `env:"QUILL_VERBOSE" envDefault:"false"`
}

// loadConfig resolves the configuration and returns the remaining
// arguments, starting with the command name.
func loadConfig(args []string, dotEnvPath string) (*Config, []string, error) {
	environment, err := config.Environment(dotEnvPath)
	if err != nil {
		return nil, nil, err
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return nil, nil, fmt.Errorf("quillctl: parse environment: %w", err)
	}

	fs := pflag.NewFlagSet("quillctl", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.Usage = func() {}

	fs.StringVar(&cfg.APIURL, "api", cfg.APIURL, "API base URL")
	fs.StringVar(&cfg.SessionFile, "session-file", cfg.SessionFile, "Session file (default: user config dir)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Log requests and session changes to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if cfg.SessionFile == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, nil, fmt.Errorf("quillctl: locate config dir (use --session-file): %w", err)
		}
		cfg.SessionFile = filepath.Join(configDir, "quill", "session.json")
	}

	return cfg, fs.Args(), nil
}
