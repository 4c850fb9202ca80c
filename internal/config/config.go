// Package config loads engine configuration from defaults, an optional
// agentsmith.yaml, and AGENTSMITH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the tunables of the engine process.
type Config struct {
	Depth     uint8  // default search depth for a go without depth
	HashMB    int    // transposition table size; 0 sizes from system memory
	Threads   int    // worker count; 0 means one per hardware core
	TablePath string // TT snapshot location; empty disables persistence
	LogLevel  string
}

// Load reads the configuration. A missing config file is not an error;
// defaults and environment variables still apply.
func Load() (Config, error) {
	v := viper.New()
	v.SetDefault("depth", 8)
	v.SetDefault("hash_mb", 0)
	v.SetDefault("threads", 0)
	v.SetDefault("table_path", "")
	v.SetDefault("log_level", "info")

	v.SetConfigName("agentsmith")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.agentsmith")

	v.SetEnvPrefix("AGENTSMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	depth := v.GetInt("depth")
	if depth < 1 || depth > 255 {
		return Config{}, fmt.Errorf("depth must be in [1, 255], got %d", depth)
	}

	return Config{
		Depth:     uint8(depth),
		HashMB:    v.GetInt("hash_mb"),
		Threads:   v.GetInt("threads"),
		TablePath: v.GetString("table_path"),
		LogLevel:  v.GetString("log_level"),
	}, nil
}
