package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/swiftup/internal/platform"
)

// mockDetector is a test implementation of platform.Detector.
type mockDetector struct {
	info *platform.Info
	err  error
}

func (m *mockDetector) Detect(ctx context.Context) (*platform.Info, error) {
	return m.info, m.err
}

func TestParser_ParseString_Minimal(t *testing.T) {
	cfg, err := NewParser(nil).ParseString(context.Background(), `swiftup = { version = "5.9" }`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if cfg.Version != "5.9" {
		t.Errorf("Version = %q, want 5.9", cfg.Version)
	}
	if cfg.Host != "" || cfg.Verifier != "" {
		t.Errorf("unset fields must stay empty for merging: %+v", cfg)
	}
}

func TestParser_ParseString_Full(t *testing.T) {
	luaCode := `
		swiftup = {
			version   = "5.10.1",
			platform  = { name = "ubuntu", version = "22.04" },
			cache_dir = "/opt/toolcache",
			host      = "https://mirror.example.org/swift",
			keys      = {
				url       = "https://mirror.example.org/keys.asc",
				keyserver = "hkps://keys.openpgp.org",
				publisher = "Swift 5.x Release Signing Key",
			},
			verifier  = "gpg",
			gpg       = { binary = "gpg2", homedir = "/var/lib/swiftup/gnupg" },
		}
	`

	cfg, err := NewParser(nil).ParseString(context.Background(), luaCode)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	want := Config{
		Version:  "5.10.1",
		Platform: PlatformConfig{Name: "ubuntu", Version: "22.04"},
		CacheDir: "/opt/toolcache",
		Host:     "https://mirror.example.org/swift",
		Keys: KeysConfig{
			URL:       "https://mirror.example.org/keys.asc",
			Keyserver: "hkps://keys.openpgp.org",
			Publisher: "Swift 5.x Release Signing Key",
		},
		Verifier: VerifierGPG,
		GPG:      GPGConfig{Binary: "gpg2", HomeDir: "/var/lib/swiftup/gnupg"},
	}
	if *cfg != want {
		t.Errorf("ParseString() =\n%+v\nwant\n%+v", *cfg, want)
	}
}

func TestParser_ParseString_PlatformNameFolded(t *testing.T) {
	tests := []struct {
		name string
		lua  string
		want PlatformConfig
	}{
		{
			name: "capitalised",
			lua:  `swiftup = { platform = { name = "Ubuntu", version = "20.04" } }`,
			want: PlatformConfig{Name: "ubuntu", Version: "20.04"},
		},
		{
			name: "padded",
			lua:  `swiftup = { platform = { name = " AmazonLinux ", version = "2" } }`,
			want: PlatformConfig{Name: "amazonlinux", Version: "2"},
		},
		{
			name: "absent",
			lua:  `swiftup = { version = "5.9" }`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewParser(nil).ParseString(context.Background(), tt.lua)
			if err != nil {
				t.Fatalf("ParseString() error = %v", err)
			}
			if cfg.Platform != tt.want {
				t.Errorf("Platform = %+v, want %+v", cfg.Platform, tt.want)
			}
		})
	}
}

func TestParser_ParseString_PlatformConditional(t *testing.T) {
	luaCode := `
		swiftup = {
			version = platform.is_arm64 and "5.10" or "5.9",
			cache_dir = platform.when(platform.is_debian_family, "/opt/debian-cache"),
		}
	`

	tests := []struct {
		name         string
		info         *platform.Info
		wantVersion  string
		wantCacheDir string
	}{
		{
			name:         "ubuntu_amd64",
			info:         &platform.Info{OS: "linux", Arch: "amd64", Platform: "ubuntu", Family: platform.FamilyDebian, Version: "22.04"},
			wantVersion:  "5.9",
			wantCacheDir: "/opt/debian-cache",
		},
		{
			name:        "fedora_arm64",
			info:        &platform.Info{OS: "linux", Arch: "arm64", Platform: "fedora", Family: platform.FamilyFedora, Version: "39"},
			wantVersion: "5.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser(&mockDetector{info: tt.info})
			cfg, err := parser.ParseString(context.Background(), luaCode)
			if err != nil {
				t.Fatalf("ParseString() error = %v", err)
			}
			if cfg.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", cfg.Version, tt.wantVersion)
			}
			if cfg.CacheDir != tt.wantCacheDir {
				t.Errorf("CacheDir = %q, want %q", cfg.CacheDir, tt.wantCacheDir)
			}
		})
	}
}

func TestParser_ParseString_Errors(t *testing.T) {
	tests := []struct {
		name       string
		luaCode    string
		wantSubstr string
	}{
		{
			name:       "syntax_error",
			luaCode:    `swiftup = {`,
			wantSubstr: "Lua syntax error",
		},
		{
			name:       "missing_table",
			luaCode:    `config = {}`,
			wantSubstr: "missing or invalid 'swiftup' table",
		},
		{
			name:       "table_is_string",
			luaCode:    `swiftup = "5.9"`,
			wantSubstr: "expected table, got string",
		},
		{
			name:       "numeric_version",
			luaCode:    `swiftup = { version = 5.10 }`,
			wantSubstr: "quote it",
		},
		{
			name:       "boolean_host",
			luaCode:    `swiftup = { host = true }`,
			wantSubstr: "invalid 'host' field",
		},
		{
			name:       "keys_not_table",
			luaCode:    `swiftup = { keys = "https://swift.org/keys/all-keys.asc" }`,
			wantSubstr: "invalid 'keys' field",
		},
		{
			name:       "nested_wrong_type",
			luaCode:    `swiftup = { platform = { name = "ubuntu", version = 22.04 } }`,
			wantSubstr: "platform.version",
		},
		{
			name:       "sandbox_violation",
			luaCode:    `swiftup = { cache_dir = os.getenv("HOME") }`,
			wantSubstr: "Lua syntax error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(nil).ParseString(context.Background(), tt.luaCode)
			if err == nil {
				t.Fatal("expected error but got none")
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.wantSubstr) {
				t.Errorf("error %q does not contain %q", err, tt.wantSubstr)
			}
		})
	}
}

func TestParser_DetectorError(t *testing.T) {
	parser := NewParser(&mockDetector{err: errors.New("no /etc/os-release")})
	if _, err := parser.ParseString(context.Background(), `swiftup = {}`); err == nil {
		t.Fatal("expected detection error")
	}
}

func TestParser_ContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewParser(nil).ParseString(ctx, `while true do end`)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestParser_SizeLimit(t *testing.T) {
	big := "swiftup = {}\n--" + strings.Repeat("x", MaxConfigSize)
	if _, err := NewParser(nil).ParseString(context.Background(), big); err == nil {
		t.Fatal("expected oversized config to be rejected")
	}

	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(big), 0o644); err != nil {
		t.Fatal(err)
	}
	var parseErr *ParseError
	if _, err := NewParser(nil).ParseFile(context.Background(), path); !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError for oversized file, got %v", err)
	}
}

func TestParser_ParseFileMissing(t *testing.T) {
	_, err := NewParser(nil).ParseFile(context.Background(), filepath.Join(t.TempDir(), FileName))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestFormatError(t *testing.T) {
	err := &ParseError{
		Message: "Lua syntax error",
		Detail:  "<string>:1: unexpected EOF\nstack traceback:\n\t[G]: ?",
	}

	if got := FormatError(err, false); got != "Lua syntax error: <string>:1: unexpected EOF" {
		t.Errorf("FormatError(short) = %q", got)
	}
	if got := FormatError(err, true); !strings.Contains(got, "stack traceback") {
		t.Errorf("FormatError(verbose) should include the traceback: %q", got)
	}
	if got := FormatError(errors.New("plain"), false); got != "plain" {
		t.Errorf("FormatError(plain) = %q", got)
	}
}
