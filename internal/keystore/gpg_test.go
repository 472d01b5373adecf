package keystore

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls []call
	out   []byte
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	return f.out, f.err
}

func TestGPGStore_Commands(t *testing.T) {
	tests := []struct {
		name     string
		homeDir  string
		run      func(s *GPGStore) error
		wantArgs []string
	}{
		{
			name: "import",
			run: func(s *GPGStore) error {
				return s.Import(context.Background(), "/tmp/all-keys.asc")
			},
			wantArgs: []string{"--batch", "--no-tty", "--import", "/tmp/all-keys.asc"},
		},
		{
			name:    "refresh_with_homedir",
			homeDir: "/home/u/.gnupg",
			run: func(s *GPGStore) error {
				return s.Refresh(context.Background(), "hkp://keyserver.ubuntu.com", "Swift")
			},
			wantArgs: []string{"--batch", "--no-tty", "--homedir", "/home/u/.gnupg",
				"--keyserver", "hkp://keyserver.ubuntu.com", "--refresh-keys", "Swift"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			store := NewGPGStore("", tt.homeDir, runner)

			if err := tt.run(store); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(runner.calls) != 1 {
				t.Fatalf("expected 1 call, got %d", len(runner.calls))
			}
			if runner.calls[0].name != "gpg" {
				t.Errorf("binary = %s, want gpg", runner.calls[0].name)
			}
			if !reflect.DeepEqual(runner.calls[0].args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", runner.calls[0].args, tt.wantArgs)
			}
		})
	}
}

func TestGPGStore_Verify(t *testing.T) {
	status := strings.Join([]string{
		"[GNUPG:] NEWSIG",
		"[GNUPG:] GOODSIG 9F597F4D21A56D5F Swift Automatic Signing Key #4 <swift-infrastructure@forums.swift.org>",
		"[GNUPG:] VALIDSIG e813c892820a6fa13755b268f167dd5db0e94c86 2023-09-12 1694540000 0 4 0 1 8 00 e813c892820a6fa13755b268f167dd5db0e94c86",
		"[GNUPG:] TRUST_UNDEFINED 0 pgp",
	}, "\n")

	runner := &fakeRunner{out: []byte(status)}
	store := NewGPGStore("gpg2", "", runner)

	fpr, err := store.Verify(context.Background(), "swift.tar.gz.sig", "swift.tar.gz")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if fpr != "E813C892820A6FA13755B268F167DD5DB0E94C86" {
		t.Errorf("fingerprint = %s", fpr)
	}

	wantArgs := []string{"--batch", "--no-tty", "--status-fd", "1", "--verify", "swift.tar.gz.sig", "swift.tar.gz"}
	if runner.calls[0].name != "gpg2" || !reflect.DeepEqual(runner.calls[0].args, wantArgs) {
		t.Errorf("unexpected call: %+v", runner.calls[0])
	}
}

func TestGPGStore_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("non_zero_exit", func(t *testing.T) {
		runner := &fakeRunner{out: []byte("gpg: BAD signature"), err: errors.New("exit status 1")}
		store := NewGPGStore("", "", runner)

		_, err := store.Verify(ctx, "sig", "payload")
		if err == nil || !strings.Contains(err.Error(), "BAD signature") {
			t.Fatalf("expected gpg output in error, got %v", err)
		}
	})

	t.Run("success_without_validsig", func(t *testing.T) {
		runner := &fakeRunner{out: []byte("[GNUPG:] NEWSIG\n")}
		store := NewGPGStore("", "", runner)

		if _, err := store.Verify(ctx, "sig", "payload"); !errors.Is(err, ErrNoValidSignature) {
			t.Fatalf("expected ErrNoValidSignature, got %v", err)
		}
	})

	t.Run("import_failure", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("exit status 2")}
		store := NewGPGStore("", "", runner)

		if err := store.Import(ctx, "keys.asc"); err == nil {
			t.Fatal("expected import error")
		}
	})

	t.Run("refresh_failure", func(t *testing.T) {
		runner := &fakeRunner{out: []byte("gpg: keyserver refresh failed: No keyserver available"), err: errors.New("exit status 2")}
		store := NewGPGStore("", "", runner)

		if err := store.Refresh(ctx, "hkp://pool.sks-keyservers.net", "Swift"); err == nil {
			t.Fatal("expected refresh error")
		}
	})
}
