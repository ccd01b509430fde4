package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEnvFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	writeEnvFile(t, dir, ".env", "ENV_TEST_BASE=from-base\nENV_TEST_SHARED=from-base\n")
	writeEnvFile(t, dir, ".env.test", "ENV_TEST_SHARED=from-test\n# comment line\nENV_TEST_QUOTED=\"quoted value\"\n")

	t.Setenv("ENV_TEST_BASE", "")
	t.Setenv("ENV_TEST_SHARED", "")
	t.Setenv("ENV_TEST_QUOTED", "")

	if err := LoadEnvFiles(dir, "test"); err != nil {
		t.Fatalf("LoadEnvFiles failed: %v", err)
	}

	if got := os.Getenv("ENV_TEST_BASE"); got != "from-base" {
		t.Errorf("Expected ENV_TEST_BASE=from-base, got %q", got)
	}
	if got := os.Getenv("ENV_TEST_SHARED"); got != "from-test" {
		t.Errorf("Environment-specific file should win, got %q", got)
	}
	if got := os.Getenv("ENV_TEST_QUOTED"); got != "quoted value" {
		t.Errorf("Expected quotes stripped, got %q", got)
	}
}

func TestLoadEnvFiles_NeverOverridesProcessEnv(t *testing.T) {
	dir := t.TempDir()
	writeEnvFile(t, dir, ".env", "ENV_TEST_PRESET=from-file\n")

	t.Setenv("ENV_TEST_PRESET", "from-process")

	if err := LoadEnvFiles(dir, "test"); err != nil {
		t.Fatalf("LoadEnvFiles failed: %v", err)
	}

	if got := os.Getenv("ENV_TEST_PRESET"); got != "from-process" {
		t.Errorf("Process environment must win, got %q", got)
	}
}

func TestLoadEnvFiles_MissingFilesAreSkipped(t *testing.T) {
	if err := LoadEnvFiles(t.TempDir(), "test"); err != nil {
		t.Errorf("Missing env files should not be an error: %v", err)
	}
}
