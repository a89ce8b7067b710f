// Package config loads server and client settings from a YAML file with
// environment overrides.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type (
	Config struct {
		ListenAddr string `yaml:"listenAddr"`
		ServerHost string `yaml:"serverHost"`
		MongoURI   string `yaml:"mongoUri"`
		MongoDB    string `yaml:"mongoDb"`
		RedisAddr  string `yaml:"redisAddr"`

		// MediaMaxBytes caps attachment size before encryption; media is
		// sealed as one buffer, so this bounds memory per upload.
		MediaMaxBytes int64 `yaml:"mediaMaxBytes"`

		KDF KDFConfig `yaml:"kdf"`
	}

	KDFConfig struct {
		// Variant selects the password-hash strategy once at startup:
		// "argon2id" (default) or "blake2b" (degraded fallback).
		Variant  string `yaml:"variant"`
		Time     uint32 `yaml:"time"`
		MemoryKB uint32 `yaml:"memoryKb"`
		Threads  uint8  `yaml:"threads"`
	}
)

func Default() Config {
	return Config{
		ListenAddr:    "localhost:9090",
		ServerHost:    "localhost:9090",
		MongoURI:      "mongodb://localhost:27017",
		MongoDB:       "sealedchat",
		RedisAddr:     "localhost:6379",
		MediaMaxBytes: 32 << 20,
		KDF: KDFConfig{
			Variant:  "argon2id",
			Time:     2,
			MemoryKB: 64 * 1024,
			Threads:  1,
		},
	}
}

// LoadFromPath reads the config file at configPath, falling back to the
// default locations, then applies environment overrides. A missing or
// unreadable file leaves the defaults in place.
func LoadFromPath(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"configs/config.yaml",
			"config.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}

		Merge(&cfg, parsed)
		break
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

// Merge copies the set fields of parsed over cfg, keeping defaults for
// anything the file omits.
func Merge(cfg *Config, parsed Config) {
	if parsed.ListenAddr != "" {
		cfg.ListenAddr = parsed.ListenAddr
	}
	if parsed.ServerHost != "" {
		cfg.ServerHost = parsed.ServerHost
	}
	if parsed.MongoURI != "" {
		cfg.MongoURI = parsed.MongoURI
	}
	if parsed.MongoDB != "" {
		cfg.MongoDB = parsed.MongoDB
	}
	if parsed.RedisAddr != "" {
		cfg.RedisAddr = parsed.RedisAddr
	}
	if parsed.MediaMaxBytes > 0 {
		cfg.MediaMaxBytes = parsed.MediaMaxBytes
	}
	if parsed.KDF.Variant != "" {
		cfg.KDF.Variant = parsed.KDF.Variant
	}
	if parsed.KDF.Time > 0 {
		cfg.KDF.Time = parsed.KDF.Time
	}
	if parsed.KDF.MemoryKB > 0 {
		cfg.KDF.MemoryKB = parsed.KDF.MemoryKB
	}
	if parsed.KDF.Threads > 0 {
		cfg.KDF.Threads = parsed.KDF.Threads
	}
}

// ApplyEnvOverrides lets deployment environments override the file.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SEALEDCHAT_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("SEALEDCHAT_SERVER_HOST"); v != "" {
		cfg.ServerHost = v
	}
	if v := os.Getenv("SEALEDCHAT_MONGO_URI"); v != "" {
		cfg.MongoURI = v
	}
	if v := os.Getenv("SEALEDCHAT_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("SEALEDCHAT_MEDIA_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MediaMaxBytes = n
		}
	}
	if v := os.Getenv("SEALEDCHAT_KDF_VARIANT"); v != "" {
		cfg.KDF.Variant = v
	}
}
