package platform

import (
	"context"
	"errors"
	"runtime"
	"testing"
)

// MockDetector is a test implementation of Detector.
type MockDetector struct {
	info *Info
	err  error
}

// NewMockDetector creates a mock detector with specified return values.
func NewMockDetector(info *Info, err error) Detector {
	return &MockDetector{info: info, err: err}
}

// Detect returns the pre-configured info and error.
func (m *MockDetector) Detect(ctx context.Context) (*Info, error) {
	return m.info, m.err
}

func TestRealDetector_Detect(t *testing.T) {
	detector := NewDetector()

	info, err := detector.Detect(context.Background())
	if runtime.GOARCH != "amd64" && runtime.GOARCH != "arm64" {
		if err == nil {
			t.Fatal("expected error on unsupported architecture")
		}
		return
	}
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	if info.OS != runtime.GOOS {
		t.Errorf("OS = %v, want %v", info.OS, runtime.GOOS)
	}
	if info.ArchRaw != runtime.GOARCH {
		t.Errorf("ArchRaw = %v, want %v", info.ArchRaw, runtime.GOARCH)
	}
	if info.Platform != "" && info.Family == "" {
		t.Error("Family should be set when Platform is set")
	}
}

func stubLookup(platform, family, version string, err error) func(context.Context) (string, string, string, error) {
	return func(context.Context) (string, string, string, error) {
		return platform, family, version, err
	}
}

func TestRealDetector_Linux(t *testing.T) {
	tests := []struct {
		name       string
		lookup     func(context.Context) (string, string, string, error)
		wantID     string
		wantFamily string
		wantVer    string
	}{
		{
			name:       "ubuntu",
			lookup:     stubLookup("Ubuntu", "debian", "20.04", nil),
			wantID:     "ubuntu",
			wantFamily: FamilyDebian,
			wantVer:    "20.04",
		},
		{
			name:       "unknown_family",
			lookup:     stubLookup("nixos", "nixos", "24.05", nil),
			wantID:     "nixos",
			wantFamily: FamilyUnknown,
			wantVer:    "24.05",
		},
		{
			name:   "lookup_failure_falls_back",
			lookup: stubLookup("", "", "", errors.New("no os-release")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &RealDetector{goos: "linux", goarch: "x86_64", lookup: tt.lookup}

			info, err := d.Detect(context.Background())
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if info.Arch != "amd64" {
				t.Errorf("Arch = %q, want amd64", info.Arch)
			}
			if info.Platform != tt.wantID || info.Family != tt.wantFamily || info.Version != tt.wantVer {
				t.Errorf("got %q/%q/%q, want %q/%q/%q",
					info.Platform, info.Family, info.Version, tt.wantID, tt.wantFamily, tt.wantVer)
			}
		})
	}
}

func TestRealDetector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &RealDetector{goos: "linux", goarch: "arm64", lookup: stubLookup("", "", "", context.Canceled)}
	if _, err := d.Detect(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestRealDetector_NonLinuxSkipsLookup(t *testing.T) {
	called := false
	d := &RealDetector{goos: "darwin", goarch: "arm64", lookup: func(context.Context) (string, string, string, error) {
		called = true
		return "", "", "", nil
	}}

	info, err := d.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if called {
		t.Error("distro lookup should not run on non-Linux hosts")
	}
	if info.GetDistro() != nil {
		t.Error("expected no distro on darwin")
	}
}

func TestRealDetector_UnsupportedArch(t *testing.T) {
	d := &RealDetector{goos: "linux", goarch: "mips", lookup: stubLookup("ubuntu", "debian", "22.04", nil)}
	if _, err := d.Detect(context.Background()); err == nil {
		t.Fatal("expected error for unsupported architecture")
	}
}
