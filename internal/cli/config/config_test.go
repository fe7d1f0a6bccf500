package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Test loading with no config file (should use defaults)
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected config to be non-nil")
	}

	// Check defaults
	if cfg.Server.Port != 3000 {
		t.Errorf("expected default port 3000, got %d", cfg.Server.Port)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected default host '127.0.0.1', got %s", cfg.Server.Host)
	}

	if cfg.Schema != "schema.shapr" {
		t.Errorf("expected default schema 'schema.shapr', got %s", cfg.Schema)
	}

	if cfg.Database.Driver != "memory" {
		t.Errorf("expected default driver 'memory', got %s", cfg.Database.Driver)
	}

	if cfg.Generate.Output != "generated" {
		t.Errorf("expected default output 'generated', got %s", cfg.Generate.Output)
	}

	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("expected default token TTL 24h, got %s", cfg.Auth.TokenTTL)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	// Create temporary directory with config file
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	// Write config file
	configContent := `
project_name: test-project
schema: cms.shapr
server:
  port: 8080
  host: 0.0.0.0
database:
  driver: postgres
  url: postgresql://localhost/testdb
generate:
  output: dist/generated
auth:
  secret: sekrit
  token_ttl: 1h
`
	os.WriteFile("shapr.yml", []byte(configContent), 0644)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.ProjectName != "test-project" {
		t.Errorf("expected project name 'test-project', got %s", cfg.ProjectName)
	}

	if cfg.Schema != "cms.shapr" {
		t.Errorf("expected schema 'cms.shapr', got %s", cfg.Schema)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected host '0.0.0.0', got %s", cfg.Server.Host)
	}

	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected driver 'postgres', got %s", cfg.Database.Driver)
	}

	if cfg.Database.URL != "postgresql://localhost/testdb" {
		t.Errorf("expected database URL, got %s", cfg.Database.URL)
	}

	if cfg.Generate.Output != "dist/generated" {
		t.Errorf("expected output 'dist/generated', got %s", cfg.Generate.Output)
	}

	if cfg.Auth.Secret != "sekrit" {
		t.Errorf("expected auth secret, got %s", cfg.Auth.Secret)
	}

	if cfg.Auth.TokenTTL != time.Hour {
		t.Errorf("expected token TTL 1h, got %s", cfg.Auth.TokenTTL)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	// SQL driver without a URL
	os.WriteFile("shapr.yml", []byte("database:\n  driver: sqlite3\n"), 0644)
	if _, err := Load(); err == nil {
		t.Error("expected error for sql driver without url")
	}

	// Unknown driver
	os.WriteFile("shapr.yml", []byte("database:\n  driver: oracle\n  url: x\n"), 0644)
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown driver")
	}

	// Invalid port
	os.WriteFile("shapr.yml", []byte("server:\n  port: 99999\n"), 0644)
	if _, err := Load(); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

func TestGetDatabaseURL(t *testing.T) {
	// Test with environment variable
	os.Setenv("DATABASE_URL", "postgresql://env/testdb")
	defer os.Unsetenv("DATABASE_URL")

	url := GetDatabaseURL()
	if url != "postgresql://env/testdb" {
		t.Errorf("expected DATABASE_URL from environment, got %s", url)
	}
}

func TestGetDatabaseURLFromConfig(t *testing.T) {
	// Create temporary directory with config file
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	// Ensure no environment variable
	os.Unsetenv("DATABASE_URL")

	// Write config file
	configContent := `
database:
  driver: postgres
  url: postgresql://config/testdb
`
	os.WriteFile("shapr.yml", []byte(configContent), 0644)

	url := GetDatabaseURL()
	if url != "postgresql://config/testdb" {
		t.Errorf("expected DATABASE_URL from config, got %s", url)
	}
}

func TestGetProjectRoot(t *testing.T) {
	// Create nested directory structure
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd)

	// Create project root with shapr.yml
	os.WriteFile(filepath.Join(tmpDir, "shapr.yml"), []byte(""), 0644)

	// Create nested subdirectory
	subDir := filepath.Join(tmpDir, "src", "deep", "nested")
	os.MkdirAll(subDir, 0755)
	os.Chdir(subDir)

	root, err := GetProjectRoot()
	if err != nil {
		t.Fatalf("expected to find project root, got error: %v", err)
	}

	// On macOS, /tmp is symlinked to /private/tmp, so resolve both paths
	resolvedRoot, _ := filepath.EvalSymlinks(root)
	resolvedTmpDir, _ := filepath.EvalSymlinks(tmpDir)

	if resolvedRoot != resolvedTmpDir {
		t.Errorf("expected project root to be %s, got %s", resolvedTmpDir, resolvedRoot)
	}
}

func TestGetProjectRootNotInProject(t *testing.T) {
	// Create temporary directory with no project markers
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	_, err := GetProjectRoot()
	if err == nil {
		t.Error("expected error when not in a project, got nil")
	}
}
