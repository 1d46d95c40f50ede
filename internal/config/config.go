// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blinklabs-io/husky/registry"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "husky.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// RunMode represents the operational mode of the husky daemon
type RunMode string

const (
	RunModeServe RunMode = "serve" // Sync against a configured network
	RunModeDev   RunMode = "dev"   // Development mode (in-memory chain transport)
)

// Valid returns true if the RunMode is a known valid mode
func (m RunMode) Valid() bool {
	switch m {
	case RunModeServe, RunModeDev, "":
		return true
	default:
		return false
	}
}

// IsDevMode returns true if the mode enables the in-memory development
// transport and wallet provider
func (m RunMode) IsDevMode() bool {
	return m == RunModeDev
}

type Config struct {
	DataDir         string   `yaml:"dataDir"         split_words:"true"`
	Network         string   `yaml:"network"`
	BindAddr        string   `yaml:"bindAddr"        split_words:"true"`
	MetricsPort     uint     `yaml:"metricsPort"     split_words:"true"`
	Gateways        []string `yaml:"gateways"`
	PinningUrl      string   `yaml:"pinningUrl"      split_words:"true"`
	PinningToken    string   `yaml:"pinningToken"    split_words:"true"`
	GatewayTimeout  string   `yaml:"gatewayTimeout"  split_words:"true"`
	SyncConcurrency int      `yaml:"syncConcurrency" split_words:"true"`
	ShutdownTimeout string   `yaml:"shutdownTimeout" split_words:"true"`
	RunMode         RunMode  `yaml:"runMode"         envconfig:"HUSKY_RUN_MODE"`
}

// NetworkId resolves the configured network name against the deployment
// table.
func (c *Config) NetworkId() (uint64, error) {
	return registry.NetworkIdByName(c.Network)
}

var globalConfig = &Config{
	DataDir:     ".husky",
	Network:     "devnet",
	BindAddr:    "0.0.0.0",
	MetricsPort: 12888,
	Gateways: []string{
		"https://ipfs.io/ipfs",
		"https://dweb.link/ipfs",
		"https://cloudflare-ipfs.com/ipfs",
	},
	GatewayTimeout:  "10s",
	SyncConcurrency: 8,
	ShutdownTimeout: DefaultShutdownTimeout,
	RunMode:         RunModeDev,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.husky/husky.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".husky", "husky.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/husky/husky.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/husky/husky.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	err := envconfig.Process("husky", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	// Validate and default RunMode
	if !globalConfig.RunMode.Valid() {
		return nil, fmt.Errorf(
			"invalid runMode: %q (must be 'serve' or 'dev')",
			globalConfig.RunMode,
		)
	}
	if globalConfig.RunMode == "" {
		globalConfig.RunMode = RunModeServe
	}

	// The network must appear in the deployment table
	if _, err := globalConfig.NetworkId(); err != nil {
		return nil, fmt.Errorf("error validating network: %w", err)
	}

	if len(globalConfig.Gateways) == 0 {
		return nil, fmt.Errorf("at least one gateway must be configured")
	}

	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}
