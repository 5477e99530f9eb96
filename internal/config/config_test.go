package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ServerAddr != ":8080" {
		t.Errorf("server addr = %q, want :8080", cfg.ServerAddr)
	}
	if cfg.VisaFee != 2500 {
		t.Errorf("visa fee = %v, want 2500", cfg.VisaFee)
	}
	if cfg.RequiredDocuments != 3 {
		t.Errorf("required documents = %d, want 3", cfg.RequiredDocuments)
	}
	if cfg.MaxUploadSize != 20<<20 {
		t.Errorf("max upload size = %d, want 20MB", cfg.MaxUploadSize)
	}
	if cfg.ReadTimeout != 15*time.Second {
		t.Errorf("read timeout = %v, want 15s", cfg.ReadTimeout)
	}
	if cfg.DBMaxConnections() != 20 {
		t.Errorf("db max connections = %d, want 20", cfg.DBMaxConnections())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("VISA_FEE", "3000")
	t.Setenv("REQUIRED_DOCUMENTS", "5")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/visas")
	t.Setenv("ADMIN_EMAIL", "admin@visaflow.example")

	cfg := Load()
	if cfg.ServerAddr != ":9090" {
		t.Errorf("server addr = %q, want :9090", cfg.ServerAddr)
	}
	if cfg.VisaFee != 3000 {
		t.Errorf("visa fee = %v, want 3000", cfg.VisaFee)
	}
	if cfg.RequiredDocuments != 5 {
		t.Errorf("required documents = %d, want 5", cfg.RequiredDocuments)
	}
	if cfg.DatabaseURL() != "postgres://u:p@db:5432/visas" {
		t.Errorf("database url = %q", cfg.DatabaseURL())
	}
	if cfg.AdminEmail != "admin@visaflow.example" {
		t.Errorf("admin email = %q", cfg.AdminEmail)
	}
}

func TestLoadInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("VISA_FEE", "not-a-number")
	t.Setenv("REQUIRED_DOCUMENTS", "-2")

	cfg := Load()
	if cfg.VisaFee != 2500 {
		t.Errorf("visa fee = %v, want default 2500", cfg.VisaFee)
	}
	if cfg.RequiredDocuments != 3 {
		t.Errorf("required documents = %d, want default 3", cfg.RequiredDocuments)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "api.yaml")
	data := []byte("server_addr: \":7070\"\nvisa_fee: 1800\nupload_dir: /var/uploads\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg := Load()
	if cfg.ServerAddr != ":7070" {
		t.Errorf("server addr = %q, want :7070", cfg.ServerAddr)
	}
	if cfg.VisaFee != 1800 {
		t.Errorf("visa fee = %v, want 1800", cfg.VisaFee)
	}
	if cfg.UploadDir != "/var/uploads" {
		t.Errorf("upload dir = %q", cfg.UploadDir)
	}

	// env всё равно сильнее YAML
	t.Setenv("SERVER_ADDR", ":6060")
	cfg = Load()
	if cfg.ServerAddr != ":6060" {
		t.Errorf("server addr = %q, want env :6060", cfg.ServerAddr)
	}
}
