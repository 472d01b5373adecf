package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Dir returns the swiftup directory: $SWIFTUP_DIR or ~/.config/swiftup.
func Dir() (string, error) {
	if dir := os.Getenv(EnvDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "swiftup"), nil
}

// Load builds the configuration for dir: defaults, then dir/swiftup.lua if
// present, then the environment. The result is validated.
func Load(ctx context.Context, parser *Parser, dir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dir, FileName)
	fileCfg, err := parser.ParseFile(ctx, path)
	switch {
	case err == nil:
		cfg.Merge(fileCfg)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays SWIFTUP_* variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	env := &Config{}
	get := func(name string) string {
		v, _ := lookup(name)
		return strings.TrimSpace(v)
	}

	env.Version = get(EnvVersion)
	env.CacheDir = get(EnvCacheDir)
	env.Host = get(EnvHost)
	env.Keys.Keyserver = get(EnvKeyserver)
	env.Verifier = get(EnvVerifier)

	if p := get(EnvPlatform); p != "" {
		name, version, ok := strings.Cut(p, ":")
		if !ok {
			return &ValidationError{Field: EnvPlatform, Message: fmt.Sprintf("expected name:version, got %q", p)}
		}
		env.Platform = PlatformConfig{Name: platformName(name), Version: strings.TrimSpace(version)}
	}

	if d := get(EnvDebug); d != "" {
		debug, err := strconv.ParseBool(d)
		if err != nil {
			return &ValidationError{Field: EnvDebug, Message: fmt.Sprintf("expected a boolean, got %q", d)}
		}
		env.SetDebug(debug)
	}

	c.Merge(env)
	return nil
}

// CacheRoot resolves the tool cache root: cache_dir, else
// $RUNNER_TOOL_CACHE, else <dir>/toolcache.
func (c *Config) CacheRoot(dir string) string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	if runner := os.Getenv(EnvRunnerToolCache); runner != "" {
		return runner
	}
	return filepath.Join(dir, "toolcache")
}

// platformName folds a distribution name the way platform descriptors do.
func platformName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
