// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config loads harness settings from defaults, an optional YAML file
// and CARNET_* environment variables.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/ttbt-io/carnetverify/scenarios"
	"github.com/ttbt-io/carnetverify/verify"
	"go.uber.org/zap"
)

// EnvPrefix is prepended to every environment override, e.g.
// CARNET_BASE_URL or CARNET_CONTRACT_MAP_ROOT.
const EnvPrefix = "CARNET"

// Viewport is the browser window size.
type Viewport struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// FixtureConfig configures the serve-fixture command.
type FixtureConfig struct {
	Addr           string        `mapstructure:"addr"`
	DataDir        string        `mapstructure:"data_dir"`
	HydrationDelay time.Duration `mapstructure:"hydration_delay"`
	Empty          bool          `mapstructure:"empty"`
}

// Config holds every harness setting.
type Config struct {
	BaseURL        string             `mapstructure:"base_url"`
	Headless       bool               `mapstructure:"headless"`
	Viewport       Viewport           `mapstructure:"viewport"`
	ArtifactsDir   string             `mapstructure:"artifacts_dir"`
	ChromeURL      string             `mapstructure:"chrome_url"`
	ChromePath     string             `mapstructure:"chrome_path"`
	HydrationDelay time.Duration      `mapstructure:"hydration_delay"`
	StoreDir       string             `mapstructure:"store_dir"`
	SearchQuery    string             `mapstructure:"search_query"`
	Contract       scenarios.Contract `mapstructure:"contract"`
	Fixture        FixtureConfig      `mapstructure:"fixture"`
}

// New returns a viper instance with every key defaulted and environment
// overrides enabled. Callers may bind command-line flags to it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("base_url", "http://localhost:5173")
	v.SetDefault("headless", true)
	v.SetDefault("viewport.width", verify.DefaultWidth)
	v.SetDefault("viewport.height", verify.DefaultHeight)
	v.SetDefault("artifacts_dir", "verification")
	v.SetDefault("chrome_url", "")
	v.SetDefault("chrome_path", "")
	v.SetDefault("hydration_delay", scenarios.DefaultTimeouts().Hydration)
	v.SetDefault("store_dir", "")
	v.SetDefault("search_query", scenarios.DefaultSearchQuery)
	v.SetDefault("fixture.addr", "127.0.0.1:8080")
	v.SetDefault("fixture.data_dir", "fixture-data")
	v.SetDefault("fixture.hydration_delay", 500*time.Millisecond)
	v.SetDefault("fixture.empty", false)
	setStructDefaults(v, "contract", scenarios.DefaultContract())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setStructDefaults registers one default per mapstructure-tagged field so
// AutomaticEnv can see nested keys.
func setStructDefaults(v *viper.Viper, prefix string, s any) {
	rv := reflect.ValueOf(s)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		tag := rt.Field(i).Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		v.SetDefault(prefix+"."+tag, rv.Field(i).Interface())
	}
}

// Load reads the optional config file at path into v and decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the decoded settings.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return fmt.Errorf("invalid viewport %dx%d", c.Viewport.Width, c.Viewport.Height)
	}
	if c.HydrationDelay < 0 || c.HydrationDelay > verify.MaxFixedDelay {
		return fmt.Errorf("hydration_delay %s out of range [0, %s]", c.HydrationDelay, verify.MaxFixedDelay)
	}
	if err := c.Contract.Validate(); err != nil {
		return fmt.Errorf("contract: %w", err)
	}
	return nil
}

// SessionOptions maps the settings onto browser session options.
func (c *Config) SessionOptions(logger *zap.Logger) verify.Options {
	return verify.Options{
		BaseURL:   c.BaseURL,
		Width:     int64(c.Viewport.Width),
		Height:    int64(c.Viewport.Height),
		Headless:  c.Headless,
		RemoteURL: c.ChromeURL,
		ExecPath:  c.ChromePath,
		Logger:    logger,
	}
}

// Suite builds the scenario suite for the configured contract.
func (c *Config) Suite() scenarios.Suite {
	s := scenarios.NewSuite(c.Contract)
	s.Timeouts.Hydration = c.HydrationDelay
	if c.SearchQuery != "" {
		s.SearchQuery = c.SearchQuery
	}
	return s
}
