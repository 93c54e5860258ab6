// Package config loads gateway configuration from an optional YAML file
// with NGEN_-prefixed environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lthuynh/NeuralNGenAI/internal/observability"
)

type Config struct {
	AppName string `mapstructure:"app_name"`
	Listen  string `mapstructure:"listen"`
	// APIToken enables bearer-token auth on the gateway when non-empty.
	APIToken string `mapstructure:"api_token"`

	Log observability.LogConfig `mapstructure:"log"`

	Profile  ProfileConfig  `mapstructure:"profile"`
	Adapters AdapterConfig  `mapstructure:"adapters"`
	Artifact ArtifactConfig `mapstructure:"artifact"`
}

// ProfileConfig controls where the capability snapshot comes from: a YAML
// file when set, local detection otherwise.
type ProfileConfig struct {
	File string `mapstructure:"file"`
}

// AdapterConfig tunes the simulated compute adapters.
type AdapterConfig struct {
	BaseLatency  time.Duration `mapstructure:"base_latency"`
	LatencyPerKB time.Duration `mapstructure:"latency_per_kb"`
}

// ArtifactConfig selects how oversized outputs are offloaded.
type ArtifactConfig struct {
	// Backend is "none", "local" or "minio".
	Backend string `mapstructure:"backend"`
	// InlineLimit is the output size in bytes above which the gateway moves
	// the output to the artifact store.
	InlineLimit int    `mapstructure:"inline_limit"`
	Root        string `mapstructure:"root"`
	Endpoint    string `mapstructure:"endpoint"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	Bucket      string `mapstructure:"bucket"`
	UseSSL      bool   `mapstructure:"use_ssl"`
}

// Load reads the configuration. path may be empty, in which case defaults
// and environment overrides apply.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_name", "neuralngen")
	v.SetDefault("listen", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.outputs", []string{"stderr"})
	v.SetDefault("artifact.backend", "none")
	v.SetDefault("artifact.inline_limit", 64*1024)
	v.SetDefault("artifact.bucket", "ngen-artifacts")

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
