package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/nfrund/profilesync/internal/config"
	"github.com/nfrund/profilesync/internal/logging"
)

// ConfigForTests loads .env.test from the module root into the test's
// environment and returns the resulting configuration. Integration tests are
// skipped under -short or when no .env.test exists.
func ConfigForTests(t *testing.T) *config.Config {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env, err := godotenv.Read(filepath.Join(moduleRoot(t), ".env.test"))
	if err != nil {
		t.Skipf("no .env.test available: %v", err)
	}
	for key, value := range env {
		t.Setenv(key, value)
	}

	logging.New()
	return config.FromEnv()
}

func moduleRoot(t *testing.T) string {
	t.Helper()
	path, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			return path
		}
		if path == filepath.Dir(path) {
			t.Fatalf("could not find module root with go.mod")
		}
		path = filepath.Dir(path)
	}
}
