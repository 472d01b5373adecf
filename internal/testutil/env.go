// Package testutil provides utilities for testing swiftup in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupTestEnv points every swiftup location at a fresh temp directory and
// returns it. This keeps tests away from the user's real cache, keyring and
// $GITHUB_PATH file.
//
// The cleanup is handled by t.TempDir and t.Setenv.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	t.Setenv("SWIFTUP_DIR", filepath.Join(tmpDir, "swiftup"))
	for _, name := range []string{
		"SWIFTUP_VERSION", "SWIFTUP_PLATFORM", "SWIFTUP_CACHE_DIR", "SWIFTUP_HOST",
		"SWIFTUP_KEYSERVER", "SWIFTUP_VERIFIER", "SWIFTUP_DEBUG",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("RUNNER_TOOL_CACHE", filepath.Join(tmpDir, "toolcache"))
	t.Setenv("GITHUB_PATH", "")
	t.Setenv("GNUPGHOME", filepath.Join(tmpDir, "gnupg"))

	dirs := []string{
		filepath.Join(tmpDir, "swiftup"),
		filepath.Join(tmpDir, "toolcache"),
		filepath.Join(tmpDir, "gnupg"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return tmpDir
}
