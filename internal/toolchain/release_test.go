package toolchain

import (
	"strings"
	"testing"
)

func TestNewRelease(t *testing.T) {
	tests := []struct {
		name            string
		host            string
		version         string
		platformVersion string
		wantName        string
		wantURL         string
		wantErr         bool
	}{
		{
			name:            "ubuntu_20_04",
			version:         "5.9",
			platformVersion: "20.04",
			wantName:        "swift-5.9-RELEASE-ubuntu20.04",
			wantURL:         "https://swift.org/builds/swift-5.9-release/ubuntu2004/swift-5.9-RELEASE/swift-5.9-RELEASE-ubuntu20.04.tar.gz",
		},
		{
			name:            "patch_release_custom_host",
			host:            "https://mirror.example.org/swift/",
			version:         "5.10.1",
			platformVersion: "22.04",
			wantName:        "swift-5.10.1-RELEASE-ubuntu22.04",
			wantURL:         "https://mirror.example.org/swift/swift-5.10.1-release/ubuntu2204/swift-5.10.1-RELEASE/swift-5.10.1-RELEASE-ubuntu22.04.tar.gz",
		},
		{
			name:            "mixed_case_version",
			version:         "5.9-Beta",
			platformVersion: "18.04",
			wantName:        "swift-5.9-BETA-RELEASE-ubuntu18.04",
			wantURL:         "https://swift.org/builds/swift-5.9-beta-release/ubuntu1804/swift-5.9-BETA-RELEASE/swift-5.9-BETA-RELEASE-ubuntu18.04.tar.gz",
		},
		{name: "empty_version", platformVersion: "20.04", wantErr: true},
		{name: "empty_platform_version", version: "5.9", wantErr: true},
		{name: "platform_version_without_digits", version: "5.9", platformVersion: "jammy", wantErr: true},
		{name: "version_with_slash", version: "5.9/../x", platformVersion: "20.04", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRelease(tt.host, tt.version, tt.platformVersion)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", r)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if r.ArchiveName != tt.wantName {
				t.Errorf("ArchiveName = %s, want %s", r.ArchiveName, tt.wantName)
			}
			if r.URL != tt.wantURL {
				t.Errorf("URL = %s, want %s", r.URL, tt.wantURL)
			}
			if r.SignatureURL != r.URL+".sig" {
				t.Errorf("SignatureURL = %s, want URL + .sig", r.SignatureURL)
			}
		})
	}
}

func TestNewReleaseDeterministic(t *testing.T) {
	a, err := NewRelease("", "5.9", "20.04")
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRelease("", "5.9", "20.04")
	if err != nil {
		t.Fatal(err)
	}
	if *a != *b {
		t.Errorf("same inputs produced different releases: %+v vs %+v", a, b)
	}
	if !strings.HasSuffix(a.URL, "/swift-5.9-release/ubuntu2004/swift-5.9-RELEASE/swift-5.9-RELEASE-ubuntu20.04.tar.gz") {
		t.Errorf("unexpected URL %s", a.URL)
	}
}

func TestDigitsOnly(t *testing.T) {
	tests := map[string]string{
		"20.04":    "2004",
		"22.04.3":  "22043",
		"2":        "2",
		"jammy":    "",
		"v18.04lt": "1804",
	}
	for in, want := range tests {
		if got := digitsOnly(in); got != want {
			t.Errorf("digitsOnly(%q) = %q, want %q", in, got, want)
		}
	}
}
