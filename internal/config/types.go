package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/swiftup/internal/platform"
	"github.com/ZebulonRouseFrantzich/swiftup/internal/toolchain"
)

// Verifier backends
const (
	VerifierOpenPGP = "openpgp"
	VerifierGPG     = "gpg"
)

// Config is the resolved swiftup configuration.
type Config struct {
	// Version is the toolchain release to install when none is given.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Platform overrides the detected distribution when both fields are set.
	Platform PlatformConfig `json:"platform,omitempty" yaml:"platform,omitempty"`

	// CacheDir is the tool cache root.
	CacheDir string `json:"cache_dir,omitempty" yaml:"cache_dir,omitempty"`

	// Host serves toolchain releases.
	Host string `json:"host" yaml:"host"`

	Keys KeysConfig `json:"keys" yaml:"keys"`

	// Verifier selects the signature backend: "openpgp" or "gpg".
	Verifier string `json:"verifier" yaml:"verifier"`

	GPG GPGConfig `json:"gpg,omitempty" yaml:"gpg,omitempty"`

	// Debug enables debug logging. Set only from the environment or flags.
	Debug bool `json:"-" yaml:"-"`

	debugSet bool
}

// PlatformConfig is a target distribution override.
type PlatformConfig struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// KeysConfig locates the publisher's signing keys.
type KeysConfig struct {
	URL       string `json:"url" yaml:"url"`
	Keyserver string `json:"keyserver" yaml:"keyserver"`
	Publisher string `json:"publisher" yaml:"publisher"`
}

// GPGConfig configures the gpg verifier backend.
type GPGConfig struct {
	Binary  string `json:"binary,omitempty" yaml:"binary,omitempty"`
	HomeDir string `json:"homedir,omitempty" yaml:"homedir,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host: toolchain.DefaultHost,
		Keys: KeysConfig{
			URL:       toolchain.DefaultKeysURL,
			Keyserver: toolchain.DefaultKeyserver,
			Publisher: toolchain.DefaultPublisher,
		},
		Verifier: VerifierOpenPGP,
		GPG:      GPGConfig{Binary: "gpg"},
	}
}

// Merge overlays every non-empty field of other onto c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&c.Version, other.Version)
	set(&c.Platform.Name, other.Platform.Name)
	set(&c.Platform.Version, other.Platform.Version)
	set(&c.CacheDir, other.CacheDir)
	set(&c.Host, other.Host)
	set(&c.Keys.URL, other.Keys.URL)
	set(&c.Keys.Keyserver, other.Keys.Keyserver)
	set(&c.Keys.Publisher, other.Keys.Publisher)
	set(&c.Verifier, other.Verifier)
	set(&c.GPG.Binary, other.GPG.Binary)
	set(&c.GPG.HomeDir, other.GPG.HomeDir)
	if other.debugSet || other.Debug {
		c.SetDebug(other.Debug)
	}
}

// SetDebug sets Debug and marks it explicit, so a later Merge of c carries
// false as well as true.
func (c *Config) SetDebug(debug bool) {
	c.Debug = debug
	c.debugSet = true
}

// Descriptor returns the platform override, or ok=false when the config does
// not fully specify one.
func (c *Config) Descriptor() (d platform.Descriptor, ok bool) {
	if c.Platform.Name == "" || c.Platform.Version == "" {
		return platform.Descriptor{}, false
	}
	return platform.Descriptor{Name: c.Platform.Name, VersionToken: c.Platform.Version}, true
}

// Validate performs basic validation on a Config.
func (c *Config) Validate() error {
	if strings.ContainsAny(c.Version, "/\\ \t\n") {
		return &ValidationError{Field: luaFieldVersion, Message: fmt.Sprintf("invalid version %q", c.Version)}
	}

	if (c.Platform.Name == "") != (c.Platform.Version == "") {
		return &ValidationError{Field: luaFieldPlatform, Message: "name and version must be set together"}
	}
	if d, ok := c.Descriptor(); ok {
		if err := d.Validate(); err != nil {
			return &ValidationError{Field: luaFieldPlatform, Message: err.Error()}
		}
	}

	if c.CacheDir != "" && !filepath.IsAbs(c.CacheDir) {
		return &ValidationError{Field: luaFieldCacheDir, Message: fmt.Sprintf("must be an absolute path: %s", c.CacheDir)}
	}

	if err := validateURL(c.Host, "http", "https"); err != nil {
		return &ValidationError{Field: luaFieldHost, Message: err.Error()}
	}
	if err := validateURL(c.Keys.URL, "http", "https"); err != nil {
		return &ValidationError{Field: "keys.url", Message: err.Error()}
	}
	if err := validateURL(c.Keys.Keyserver, "hkp", "hkps", "http", "https"); err != nil {
		return &ValidationError{Field: "keys.keyserver", Message: err.Error()}
	}
	if strings.TrimSpace(c.Keys.Publisher) == "" {
		return &ValidationError{Field: "keys.publisher", Message: "cannot be empty"}
	}

	switch c.Verifier {
	case VerifierOpenPGP, VerifierGPG:
	default:
		return &ValidationError{
			Field:   luaFieldVerifier,
			Message: fmt.Sprintf("unknown verifier %q (expected %q or %q)", c.Verifier, VerifierOpenPGP, VerifierGPG),
		}
	}

	return nil
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}

func validateURL(raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: %s", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("URL must use one of %s (got: %s)", strings.Join(schemes, ", "), u.Scheme)
}
