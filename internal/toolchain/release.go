package toolchain

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

const (
	// DefaultHost serves every published toolchain.
	DefaultHost = "https://swift.org/builds"
	// SignatureSuffix is appended to a payload URL to get its signature.
	SignatureSuffix = ".sig"
	// ArchiveExt is the only distribution format published for Linux.
	ArchiveExt = ".tar.gz"
)

// NewRelease derives the release coordinates for version on the given
// distribution release. host defaults to DefaultHost.
//
//	("5.9", "20.04") ->
//	  <host>/swift-5.9-release/ubuntu2004/swift-5.9-RELEASE/swift-5.9-RELEASE-ubuntu20.04.tar.gz
func NewRelease(host, version, platformVersion string) (*Release, error) {
	version = strings.TrimSpace(version)
	platformVersion = strings.TrimSpace(platformVersion)

	if version == "" {
		return nil, fmt.Errorf("version is required")
	}
	if strings.ContainsAny(version, "/\\ ") {
		return nil, fmt.Errorf("invalid version: %q", version)
	}
	if platformVersion == "" {
		return nil, fmt.Errorf("platform version is required")
	}

	digits := digitsOnly(platformVersion)
	if digits == "" {
		return nil, fmt.Errorf("platform version %q has no digits", platformVersion)
	}

	if host == "" {
		host = DefaultHost
	}
	if _, err := url.Parse(host); err != nil {
		return nil, fmt.Errorf("invalid host %q: %w", host, err)
	}
	host = strings.TrimRight(host, "/")

	upper := strings.ToUpper(version)
	name := "swift-" + upper + "-RELEASE-ubuntu" + platformVersion
	payload := host +
		"/swift-" + strings.ToLower(version) + "-release" +
		"/ubuntu" + digits +
		"/swift-" + upper + "-RELEASE" +
		"/" + name + ArchiveExt

	return &Release{
		Version:         version,
		PlatformVersion: platformVersion,
		ArchiveName:     name,
		URL:             payload,
		SignatureURL:    payload + SignatureSuffix,
	}, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}
