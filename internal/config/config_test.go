package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsWithSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")

	cfg, err := load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 || cfg.TMDB.Language != "fr-FR" || cfg.TMDB.Timeout != 10*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Storage.CoverDir != filepath.Join("data", "covers") {
		t.Fatalf("cover dir = %q", cfg.Storage.CoverDir)
	}
	if cfg.Storage.SweepInterval != 6*time.Hour || cfg.Storage.SweepGrace != time.Hour {
		t.Fatalf("sweep = %v / %v", cfg.Storage.SweepInterval, cfg.Storage.SweepGrace)
	}
	if cfg.MetadataEnabled() {
		t.Fatal("metadata enabled without api key")
	}
	if cfg.Security.MinPasswordLength != 6 || cfg.Security.RequireComplexPassword {
		t.Fatalf("password policy = %d / %v", cfg.Security.MinPasswordLength, cfg.Security.RequireComplexPassword)
	}
}

func TestMissingSecretFails(t *testing.T) {
	unsetenv(t, "JWT_SECRET")
	_, err := load("")
	if err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Fatalf("err = %v", err)
	}
}

func TestFileThenEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9000
storage:
  data_dir: /srv/videotheque
tmdb:
  api_key: from-file
  timeout: 3s
security:
  jwt_secret: file-secret
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	unsetenv(t, "JWT_SECRET")
	t.Setenv("PORT", "9100")
	t.Setenv("TMDB_API_KEY", "from-env")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("REQUIRE_COMPLEX_PASSWORD", "true")

	cfg, err := load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9100 {
		t.Fatalf("port = %d, env should win", cfg.Server.Port)
	}
	if cfg.TMDB.APIKey != "from-env" {
		t.Fatalf("api key = %q", cfg.TMDB.APIKey)
	}
	if cfg.TMDB.Timeout != 3*time.Second {
		t.Fatalf("timeout = %v", cfg.TMDB.Timeout)
	}
	if cfg.Security.JWTSecret != "file-secret" {
		t.Fatalf("secret = %q", cfg.Security.JWTSecret)
	}
	if cfg.Storage.CoverDir != filepath.Join("/srv/videotheque", "covers") {
		t.Fatalf("cover dir = %q", cfg.Storage.CoverDir)
	}
	if got := cfg.Security.CORSOrigins; len(got) != 2 || got[1] != "http://b.example" {
		t.Fatalf("cors = %v", got)
	}
	if !cfg.Security.RequireComplexPassword {
		t.Fatal("complex password flag not read from env")
	}
	if cfg.Logging.Level != "debug" || cfg.Addr() != "0.0.0.0:9100" {
		t.Fatalf("level = %q addr = %q", cfg.Logging.Level, cfg.Addr())
	}
}

func TestEnvTransformDropsUnknown(t *testing.T) {
	if got := envTransformFunc("HOME"); got != "" {
		t.Fatalf("got %q", got)
	}
	if got := envTransformFunc("TMDB_API_KEY"); got != "tmdb.api_key" {
		t.Fatalf("got %q", got)
	}
}

// unsetenv clears key for the test and restores it afterwards.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}
