package config

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Persistence.Backend != BackendPostgres {
		t.Fatalf("backend = %q, want %q", cfg.Persistence.Backend, BackendPostgres)
	}
	if cfg.Persistence.KeyPrefix != "pagecraft:page:" {
		t.Fatalf("key prefix = %q", cfg.Persistence.KeyPrefix)
	}
	if cfg.Assets.MaxBytes != 20<<20 {
		t.Fatalf("max bytes = %d", cfg.Assets.MaxBytes)
	}
	if len(cfg.Assets.AllowedMIMEs) == 0 {
		t.Fatalf("expected default mime whitelist")
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Fatalf("redis addr = %q", cfg.Redis.Addr())
	}
}

func TestLoadFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PERSISTENCE_BACKEND", " Redis ")
	t.Setenv("API_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("WORKER_CONCURRENCY", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Persistence.Backend != BackendRedis {
		t.Fatalf("backend = %q", cfg.Persistence.Backend)
	}
	if len(cfg.API.AllowedOrigins) != 2 || cfg.API.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %#v", cfg.API.AllowedOrigins)
	}
	if cfg.Worker.Concurrency != 3 {
		t.Fatalf("concurrency = %d", cfg.Worker.Concurrency)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PERSISTENCE_BACKEND", "floppy")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestLoadRequiresMinIOCredentials(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without minio credentials")
	}
}
