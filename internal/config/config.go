// Package config loads the scrub engine's runtime configuration: hasher,
// clusterer, encoder/decoder pair, parallelism, and large-chunk threshold,
// plus the ambient HTTP/logging/store settings the engine needs to run as
// a service.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Hasher config.

type Hasher struct {
	Kind         string `mapstructure:"kind"`          // "aronovich" | "odess"
	SamplingRate int    `mapstructure:"sampling_rate"` // Odess only
}

// Clusterer config.

type Clusterer struct {
	Kind          string `mapstructure:"kind"` // "eq" | "graph"
	MaxWeightEdge uint32 `mapstructure:"max_weight_edge"`
}

// Encoder config.

type Encoder struct {
	Kind                 string `mapstructure:"kind"` // "levenshtein" | "xdelta" | "gdelta" | "zdelta"
	XdeltaZstd           bool   `mapstructure:"xdelta_zstd"`
	ZdeltaHuffman        bool   `mapstructure:"zdelta_huffman"`
	LargeChunkThreshold  int    `mapstructure:"large_chunk_threshold"`
}

// Scrub config.

type Scrub struct {
	Workers int `mapstructure:"workers"`
}

// Store config: which hostfs backend to bind the SBCMap to.

type Store struct {
	Backend string `mapstructure:"backend"` // "memory" | "sqlite" | "postgres" | "redis" | "s3"

	SQLitePath string `mapstructure:"sqlite_path"`

	PostgresDSN string `mapstructure:"postgres_dsn"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	S3Region          string `mapstructure:"s3_region"`
	S3Bucket          string `mapstructure:"s3_bucket"`
	S3Endpoint        string `mapstructure:"s3_endpoint"`
	S3AccessKeyID     string `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key"`
}

// Server config for the HTTP status/metrics surface.

type Server struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type Logging struct {
	Level string `mapstructure:"level"`
}

// Config is the engine's full runtime configuration.
type Config struct {
	Hasher    Hasher    `mapstructure:"hasher"`
	Clusterer Clusterer `mapstructure:"clusterer"`
	Encoder   Encoder   `mapstructure:"encoder"`
	Scrub     Scrub     `mapstructure:"scrub"`
	Store     Store     `mapstructure:"store"`
	Server    Server    `mapstructure:"server"`
	Logging   Logging   `mapstructure:"logging"`
}

// defaultConfig is the configuration used when no file or environment
// override is present.
func defaultConfig() Config {
	return Config{
		Hasher:    Hasher{Kind: "aronovich", SamplingRate: 7},
		Clusterer: Clusterer{Kind: "graph", MaxWeightEdge: 10},
		Encoder: Encoder{
			Kind:                "zdelta",
			ZdeltaHuffman:       true,
			LargeChunkThreshold: 4000,
		},
		Scrub: Scrub{Workers: 6},
		Store: Store{Backend: "memory"},
		Server: Server{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads configuration from a YAML file at path (if it exists) with
// environment-variable overrides, falling back to defaultConfig for
// anything unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SBC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	v.SetDefault("hasher.kind", def.Hasher.Kind)
	v.SetDefault("hasher.sampling_rate", def.Hasher.SamplingRate)

	v.SetDefault("clusterer.kind", def.Clusterer.Kind)
	v.SetDefault("clusterer.max_weight_edge", def.Clusterer.MaxWeightEdge)

	v.SetDefault("encoder.kind", def.Encoder.Kind)
	v.SetDefault("encoder.xdelta_zstd", def.Encoder.XdeltaZstd)
	v.SetDefault("encoder.zdelta_huffman", def.Encoder.ZdeltaHuffman)
	v.SetDefault("encoder.large_chunk_threshold", def.Encoder.LargeChunkThreshold)

	v.SetDefault("scrub.workers", def.Scrub.Workers)

	v.SetDefault("store.backend", def.Store.Backend)
	v.SetDefault("store.sqlite_path", def.Store.SQLitePath)
	v.SetDefault("store.redis_db", def.Store.RedisDB)

	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.read_timeout", def.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", def.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", def.Server.IdleTimeout)

	v.SetDefault("logging.level", def.Logging.Level)

	if path != "" {
		v.SetConfigFile(path)
		if _, err := os.Stat(path); err == nil {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unrecognised algorithm kinds and incompatible pairings.
func Validate(cfg *Config) error {
	switch cfg.Hasher.Kind {
	case "aronovich", "odess":
	default:
		return fmt.Errorf("config: unrecognised hasher.kind %q", cfg.Hasher.Kind)
	}

	switch cfg.Clusterer.Kind {
	case "eq", "graph":
	default:
		return fmt.Errorf("config: unrecognised clusterer.kind %q", cfg.Clusterer.Kind)
	}
	if cfg.Clusterer.Kind == "graph" && cfg.Hasher.Kind == "odess" {
		return fmt.Errorf("config: Odess has no graph-clusterer projection, pair it with clusterer.kind=eq")
	}

	switch cfg.Encoder.Kind {
	case "levenshtein", "xdelta", "gdelta", "zdelta":
	default:
		return fmt.Errorf("config: unrecognised encoder.kind %q", cfg.Encoder.Kind)
	}

	if cfg.Scrub.Workers < 1 {
		return fmt.Errorf("config: scrub.workers must be >= 1")
	}

	switch cfg.Store.Backend {
	case "memory", "sqlite", "postgres", "redis", "s3":
	default:
		return fmt.Errorf("config: unrecognised store.backend %q", cfg.Store.Backend)
	}

	return nil
}
