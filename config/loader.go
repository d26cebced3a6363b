package config

// loader.go - configuration loading from YAML files and environment
// variables.
//
// Precedence order (highest wins):
//  1. CLI flags  (handled by cmd/root.go)
//  2. Environment variables  (LoadFromEnv)
//  3. Config file  (LoadFile)
//  4. Defaults  (defaults.go)

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ── YAML file ────────────────────────────────────────────────────────

// fileConfig mirrors Config with pointer fields so absent keys are
// distinguishable from zero values.  Durations are plain Go duration
// strings ("500ms", "2s").
type fileConfig struct {
	Host           *string `yaml:"host"`
	Port           *int    `yaml:"port"`
	ReadTimeout    *string `yaml:"read_timeout"`
	WriteTimeout   *string `yaml:"write_timeout"`
	SendCadence    *string `yaml:"send_cadence"`
	CadenceTick    *string `yaml:"cadence_tick"`
	ImageTimeout   *string `yaml:"image_timeout"`
	DecisionBudget *string `yaml:"decision_budget"`
	FetchImages    *bool   `yaml:"fetch_images"`
	MaxImageBytes  *uint32 `yaml:"max_image_bytes"`
	DumpDir        *string `yaml:"dump_dir"`
	Concurrent     *bool   `yaml:"concurrent"`
	Seed           *int64  `yaml:"seed"`
}

// LoadFile overlays the YAML file at path onto cfg.  Keys absent from
// the file leave the existing values untouched.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Host != nil {
		cfg.Host = *fc.Host
	}
	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.FetchImages != nil {
		cfg.FetchImages = *fc.FetchImages
	}
	if fc.MaxImageBytes != nil {
		cfg.MaxImageBytes = *fc.MaxImageBytes
	}
	if fc.DumpDir != nil {
		cfg.DumpDir = *fc.DumpDir
	}
	if fc.Concurrent != nil {
		cfg.Concurrent = *fc.Concurrent
	}
	if fc.Seed != nil {
		cfg.Seed = *fc.Seed
	}

	durations := []struct {
		key string
		val *string
		dst *time.Duration
	}{
		{"read_timeout", fc.ReadTimeout, &cfg.ReadTimeout},
		{"write_timeout", fc.WriteTimeout, &cfg.WriteTimeout},
		{"send_cadence", fc.SendCadence, &cfg.SendCadence},
		{"cadence_tick", fc.CadenceTick, &cfg.CadenceTick},
		{"image_timeout", fc.ImageTimeout, &cfg.ImageTimeout},
		{"decision_budget", fc.DecisionBudget, &cfg.DecisionBudget},
	}
	for _, d := range durations {
		if d.val == nil {
			continue
		}
		dur, err := time.ParseDuration(*d.val)
		if err != nil {
			return fmt.Errorf("config %s: %s: %w", path, d.key, err)
		}
		*d.dst = dur
	}
	return nil
}

// ── Environment variables ────────────────────────────────────────────
//
// Every supported env var uses the AICTL_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive); durations use Go
// duration syntax.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("AICTL_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("AICTL_PORT"); v > 0 {
		cfg.Port = v
	}
	if d, ok := envDuration("AICTL_READ_TIMEOUT"); ok {
		cfg.ReadTimeout = d
	}
	if d, ok := envDuration("AICTL_WRITE_TIMEOUT"); ok {
		cfg.WriteTimeout = d
	}
	if d, ok := envDuration("AICTL_SEND_CADENCE"); ok {
		cfg.SendCadence = d
	}
	if d, ok := envDuration("AICTL_CADENCE_TICK"); ok {
		cfg.CadenceTick = d
	}
	if d, ok := envDuration("AICTL_IMAGE_TIMEOUT"); ok {
		cfg.ImageTimeout = d
	}
	if d, ok := envDuration("AICTL_DECISION_BUDGET"); ok {
		cfg.DecisionBudget = d
	}
	if envBool("AICTL_NO_IMAGES") {
		cfg.FetchImages = false
	}
	if envBool("AICTL_CONCURRENT") {
		cfg.Concurrent = true
	}
	if v := os.Getenv("AICTL_DUMP_DIR"); v != "" {
		cfg.DumpDir = v
	}
	if v := os.Getenv("AICTL_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = n
		}
	}
}

// ── Env helpers ──────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}
