package config

import (
	"os"
	"testing"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-jwt-secret-key")
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.JWT.Secret != "test-jwt-secret-key" {
		t.Errorf("JWT.Secret = %q, want %q", cfg.JWT.Secret, "test-jwt-secret-key")
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Aggregator.Country != "GB" {
		t.Errorf("Aggregator.Country = %q, want %q", cfg.Aggregator.Country, "GB")
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing JWT_SECRET, got nil")
	}
}

func TestLoad_InvalidSchedulerWorkers(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SCHEDULER_WORKERS", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid SCHEDULER_WORKERS, got nil")
	}
}

func TestLoad_TLSRequiresCertAndKey(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("TLS_ENABLED", "true")
	t.Setenv("TLS_CERT_PATH", "")
	t.Setenv("TLS_KEY_PATH", "")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for TLS enabled without cert paths, got nil")
	}
}

func TestLoad_AllowedHosts(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("ALLOWED_HOSTS", "example.com, api.example.com ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(cfg.Server.AllowedHosts) != 2 {
		t.Fatalf("AllowedHosts len = %d, want 2", len(cfg.Server.AllowedHosts))
	}
	if cfg.Server.AllowedHosts[0] != "example.com" {
		t.Errorf("AllowedHosts[0] = %q, want %q", cfg.Server.AllowedHosts[0], "example.com")
	}
}

func TestConnectionString(t *testing.T) {
	dbCfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "moneta",
		Password: "secret",
		DBName:   "moneta",
		SSLMode:  "disable",
	}

	got := dbCfg.ConnectionString()
	want := "host=localhost port=5432 user=moneta password=secret dbname=moneta sslmode=disable"
	if got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}
