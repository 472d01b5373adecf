package testutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZebulonRouseFrantzich/swiftup/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	root := testutil.SetupTestEnv(t)

	for _, name := range []string{"SWIFTUP_DIR", "RUNNER_TOOL_CACHE", "GNUPGHOME"} {
		dir := os.Getenv(name)
		if dir == "" {
			t.Errorf("%s not set", name)
			continue
		}
		if filepath.Dir(dir) != root {
			t.Errorf("%s = %s, want a child of %s", name, dir, root)
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s directory not created: %v", name, err)
		}
	}

	if os.Getenv("GITHUB_PATH") != "" {
		t.Error("GITHUB_PATH should be cleared")
	}
}

func TestSignerRoundTrip(t *testing.T) {
	s := testutil.NewSigner(t, "Swift Test Signing Key")
	again := testutil.NewSigner(t, "Swift Test Signing Key")

	if s.Fingerprint() != again.Fingerprint() {
		t.Error("signers with the same name should be reused")
	}
	if len(s.Fingerprint()) != 40 {
		t.Errorf("unexpected fingerprint length: %s", s.Fingerprint())
	}
	if len(s.Sign(t, []byte("payload"), true)) == 0 {
		t.Error("empty armored signature")
	}
}
