// Package config loads swiftup settings from a sandboxed Lua file, the
// environment and command-line flags.
//
// # File format
//
// The optional file <swiftup dir>/swiftup.lua assigns a global table:
//
//	swiftup = {
//	  version   = "5.9",
//	  platform  = { name = "ubuntu", version = "22.04" },
//	  cache_dir = "/opt/toolcache",
//	  host      = "https://swift.org/builds",
//	  keys      = {
//	    url       = "https://swift.org/keys/all-keys.asc",
//	    keyserver = "hkp://keyserver.ubuntu.com",
//	    publisher = "Swift",
//	  },
//	  verifier  = "openpgp",  -- or "gpg"
//	  gpg       = { binary = "gpg", homedir = "" },
//	}
//
// A read-only `platform` table describing the detected host is available to
// the file, so a single config can branch on it:
//
//	swiftup = {
//	  version = platform.is_arm64 and "5.10" or "5.9",
//	}
//
// # Precedence
//
// Defaults < Lua file < environment (SWIFTUP_*) < command-line flags. The
// CLI applies flags on top of the value Load returns.
//
// # Sandbox
//
// The file runs in a gopher-lua VM with os, io, debug, require, dofile,
// loadfile, load and loadstring removed. Parsing honours context
// cancellation, and the call stack and source size are bounded.
package config
