package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ZebulonRouseFrantzich/swiftup/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// Parser represents a Lua config parser with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser with the given platform detector.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseFile parses the Lua config at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}
	if info.Size() > MaxConfigSize {
		return nil, &ParseError{
			Message: "config file too large",
			Detail:  fmt.Sprintf("%s is %d bytes, maximum is %d", path, info.Size(), MaxConfigSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return p.ParseString(ctx, string(data))
}

// ParseString parses a Lua config from a string. Fields the code does not
// set are left empty; callers merge the result over defaults.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	if len(luaCode) > MaxConfigSize {
		return nil, &ParseError{
			Message: "config too large",
			Detail:  fmt.Sprintf("%d bytes, maximum is %d", len(luaCode), MaxConfigSize),
		}
	}

	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		platformInfo, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, platformInfo); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("parse config: %w", ctxErr)
		}
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractConfig(L)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig reads the global "swiftup" table.
func extractConfig(L *lua.LState) (*Config, error) {
	root := L.GetGlobal(luaGlobalSwiftup)
	if root.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'swiftup' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}
	table := root.(*lua.LTable)

	config := &Config{}
	fields := []struct {
		name string
		dst  *string
	}{
		{luaFieldVersion, &config.Version},
		{luaFieldCacheDir, &config.CacheDir},
		{luaFieldHost, &config.Host},
		{luaFieldVerifier, &config.Verifier},
	}
	for _, f := range fields {
		if err := extractString(table, f.name, f.name, f.dst); err != nil {
			return nil, err
		}
	}

	if err := extractSection(table, luaFieldPlatform, map[string]*string{
		luaFieldName:    &config.Platform.Name,
		luaFieldVersion: &config.Platform.Version,
	}); err != nil {
		return nil, err
	}
	config.Platform.Name = platformName(config.Platform.Name)

	if err := extractSection(table, luaFieldKeys, map[string]*string{
		luaFieldURL:       &config.Keys.URL,
		luaFieldKeyserver: &config.Keys.Keyserver,
		luaFieldPublisher: &config.Keys.Publisher,
	}); err != nil {
		return nil, err
	}

	if err := extractSection(table, luaFieldGPG, map[string]*string{
		luaFieldBinary:  &config.GPG.Binary,
		luaFieldHomeDir: &config.GPG.HomeDir,
	}); err != nil {
		return nil, err
	}

	return config, nil
}

// extractSection reads string fields of a nested table. An absent section is
// not an error.
func extractSection(table *lua.LTable, section string, fields map[string]*string) error {
	val := table.RawGetString(section)
	switch val.Type() {
	case lua.LTNil:
		return nil
	case lua.LTTable:
	default:
		return &ParseError{
			Message: fmt.Sprintf("invalid '%s' field", section),
			Detail:  fmt.Sprintf("expected table, got %s", val.Type()),
		}
	}

	sub := val.(*lua.LTable)
	for name, dst := range fields {
		if err := extractString(sub, name, section+"."+name, dst); err != nil {
			return err
		}
	}
	return nil
}

// extractString reads a string field. Numbers are rejected so that a
// version written as 5.10 is not silently read as "5.1".
func extractString(table *lua.LTable, name, path string, dst *string) error {
	val := table.RawGetString(name)
	switch val.Type() {
	case lua.LTNil:
		return nil
	case lua.LTString:
		*dst = strings.TrimSpace(val.String())
		return nil
	case lua.LTNumber:
		return &ParseError{
			Message: fmt.Sprintf("invalid '%s' field", path),
			Detail:  fmt.Sprintf("expected string, got number %s (quote it: \"%s\")", val.String(), val.String()),
		}
	default:
		return &ParseError{
			Message: fmt.Sprintf("invalid '%s' field", path),
			Detail:  fmt.Sprintf("expected string, got %s", val.Type()),
		}
	}
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
