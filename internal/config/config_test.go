package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromPathMissingFileKeepsDefaults(t *testing.T) {
	cfg := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	def := Default()
	if cfg.ListenAddr != def.ListenAddr || cfg.KDF.Variant != def.KDF.Variant {
		t.Fatalf("missing file changed defaults: %+v", cfg)
	}
}

func TestLoadFromPathMergesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("listenAddr: \"0.0.0.0:8443\"\nkdf:\n  variant: blake2b\n  time: 3\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := LoadFromPath(path)
	if cfg.ListenAddr != "0.0.0.0:8443" {
		t.Errorf("ListenAddr = %q, want 0.0.0.0:8443", cfg.ListenAddr)
	}
	if cfg.KDF.Variant != "blake2b" {
		t.Errorf("KDF.Variant = %q, want blake2b", cfg.KDF.Variant)
	}
	if cfg.KDF.Time != 3 {
		t.Errorf("KDF.Time = %d, want 3", cfg.KDF.Time)
	}
	// untouched fields keep defaults
	if cfg.MongoURI != Default().MongoURI {
		t.Errorf("MongoURI = %q, want default", cfg.MongoURI)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SEALEDCHAT_REDIS_ADDR", "redis:6380")
	t.Setenv("SEALEDCHAT_MEDIA_MAX_BYTES", "1024")

	cfg := Default()
	ApplyEnvOverrides(&cfg)

	if cfg.RedisAddr != "redis:6380" {
		t.Errorf("RedisAddr = %q, want redis:6380", cfg.RedisAddr)
	}
	if cfg.MediaMaxBytes != 1024 {
		t.Errorf("MediaMaxBytes = %d, want 1024", cfg.MediaMaxBytes)
	}
}
