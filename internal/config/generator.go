package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Generator generates Lua configuration code from a Config.
type Generator struct {
	indent string
}

// NewGenerator creates a new Lua config generator.
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ",
	}
}

// Generate writes cfg as a swiftup.lua file. Fields equal to their defaults
// are written commented out so the file documents every option.
func (g *Generator) Generate(cfg *Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	def := Default()

	var buf bytes.Buffer
	buf.WriteString("-- swiftup configuration\n")
	buf.WriteString("-- Generated: ")
	buf.WriteString(time.Now().UTC().Format(time.RFC3339))
	buf.WriteString("\n\n")
	buf.WriteString(luaGlobalSwiftup + " = {\n")

	g.writeField(&buf, 1, luaFieldVersion, cfg.Version, cfg.Version == "")

	if cfg.Platform.Name != "" {
		g.openSection(&buf, luaFieldPlatform, false)
		g.writeField(&buf, 2, luaFieldName, cfg.Platform.Name, false)
		g.writeField(&buf, 2, luaFieldVersion, cfg.Platform.Version, false)
		g.closeSection(&buf, false)
	} else {
		buf.WriteString(g.indent + "-- " + luaFieldPlatform + ` = { name = "ubuntu", version = "22.04" },` + "\n")
	}

	g.writeField(&buf, 1, luaFieldCacheDir, cfg.CacheDir, cfg.CacheDir == "")
	g.writeField(&buf, 1, luaFieldHost, cfg.Host, cfg.Host == def.Host)

	keysDefault := cfg.Keys == def.Keys
	g.openSection(&buf, luaFieldKeys, keysDefault)
	g.writeField(&buf, 2, luaFieldURL, cfg.Keys.URL, keysDefault)
	g.writeField(&buf, 2, luaFieldKeyserver, cfg.Keys.Keyserver, keysDefault)
	g.writeField(&buf, 2, luaFieldPublisher, cfg.Keys.Publisher, keysDefault)
	g.closeSection(&buf, keysDefault)

	g.writeField(&buf, 1, luaFieldVerifier, cfg.Verifier, cfg.Verifier == def.Verifier)

	if cfg.Verifier == VerifierGPG || cfg.GPG != def.GPG {
		g.openSection(&buf, luaFieldGPG, false)
		g.writeField(&buf, 2, luaFieldBinary, cfg.GPG.Binary, cfg.GPG.Binary == "")
		g.writeField(&buf, 2, luaFieldHomeDir, cfg.GPG.HomeDir, cfg.GPG.HomeDir == "")
		g.closeSection(&buf, false)
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func (g *Generator) writeField(buf *bytes.Buffer, depth int, name, value string, commented bool) {
	buf.WriteString(strings.Repeat(g.indent, depth))
	if commented {
		buf.WriteString("-- ")
	}
	if value == "" {
		value = placeholder(name)
	}
	fmt.Fprintf(buf, "%s = %s,\n", name, g.quoteLuaString(value))
}

func (g *Generator) openSection(buf *bytes.Buffer, name string, commented bool) {
	buf.WriteString(g.indent)
	if commented {
		buf.WriteString("-- ")
	}
	buf.WriteString(name + " = {\n")
}

func (g *Generator) closeSection(buf *bytes.Buffer, commented bool) {
	buf.WriteString(g.indent)
	if commented {
		buf.WriteString("-- ")
	}
	buf.WriteString("},\n")
}

func placeholder(field string) string {
	switch field {
	case luaFieldVersion:
		return "5.9"
	case luaFieldCacheDir:
		return "/opt/toolcache"
	case luaFieldHomeDir:
		return "~/.gnupg"
	default:
		return ""
	}
}

// quoteLuaString quotes a string for Lua, handling special characters.
func (g *Generator) quoteLuaString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\") // Escape backslashes first
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return "\"" + s + "\""
}
