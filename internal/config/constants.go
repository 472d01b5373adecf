package config

// Lua schema field names and globals
const (
	luaGlobalSwiftup  = "swiftup"
	luaFieldVersion   = "version"
	luaFieldPlatform  = "platform"
	luaFieldName      = "name"
	luaFieldCacheDir  = "cache_dir"
	luaFieldHost      = "host"
	luaFieldKeys      = "keys"
	luaFieldURL       = "url"
	luaFieldKeyserver = "keyserver"
	luaFieldPublisher = "publisher"
	luaFieldVerifier  = "verifier"
	luaFieldGPG       = "gpg"
	luaFieldBinary    = "binary"
	luaFieldHomeDir   = "homedir"
)

// Environment variables
const (
	EnvDir       = "SWIFTUP_DIR"
	EnvVersion   = "SWIFTUP_VERSION"
	EnvPlatform  = "SWIFTUP_PLATFORM"
	EnvCacheDir  = "SWIFTUP_CACHE_DIR"
	EnvHost      = "SWIFTUP_HOST"
	EnvKeyserver = "SWIFTUP_KEYSERVER"
	EnvVerifier  = "SWIFTUP_VERIFIER"
	EnvDebug     = "SWIFTUP_DEBUG"

	// EnvRunnerToolCache is set on GitHub Actions runners.
	EnvRunnerToolCache = "RUNNER_TOOL_CACHE"
)

// Resource limits for parsing
const (
	MaxConfigSize = 1 << 20
	callStackSize = 256
	registrySize  = 8 * 1024
)

// FileName is the config file inside the swiftup directory.
const FileName = "swiftup.lua"
