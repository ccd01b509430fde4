package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LoadEnvFiles loads KEY=VALUE pairs from .env files into the process
// environment. More specific files win (.env.<environment> over .env.local
// over .env), and variables already set in the environment are never
// overridden. Missing files are skipped.
func LoadEnvFiles(baseDir, environment string) error {
	loaded := make(map[string]string)

	for _, filename := range []string{fmt.Sprintf(".env.%s", environment), ".env.local", ".env"} {
		if err := parseEnvFile(filepath.Join(baseDir, filename), loaded); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to load env file", "file", filename, "error", err)
		}
	}

	for key, value := range loaded {
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

func parseEnvFile(path string, into map[string]string) error {
	file, err := os.Open(path) // #nosec G304 -- paths are fixed .env names
	if err != nil {
		return err
	}
	defer file.Close() //nolint:errcheck

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		// A more specific file already set this key.
		if _, exists := into[key]; exists {
			continue
		}

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		into[key] = os.ExpandEnv(value)
	}
	return scanner.Err()
}
