// Package toolchain installs verified Swift toolchain releases into a local
// tool cache and exposes their executable directory.
//
// # Pipeline
//
// An install is a small state machine driven by Installer:
//
//	CheckingCache ─hit──────────────────────────────────────────────┐
//	      │ miss                                                    v
//	Provisioning -> Fetching -> Verifying -> Extracting -> Cached -> PathExposed
//	      └──────────────┴────────────┴────────────┴──> Failed
//
// Provisioning downloads the publisher's keys document, imports it into the
// KeyStore and refreshes those keys from a key server. Fetching downloads the
// payload and its detached signature concurrently. Verifying checks the
// signature against the freshly provisioned keys. Extracting unpacks the
// payload into cache scratch space and commits the release directory to the
// Cache. Nothing is committed on any failure path.
//
// # Key provisioning cost
//
// Keys are provisioned on every cache miss, never cached, so a rotated key is
// picked up by the next install. Repeated installs that miss the cache pay a
// keys download and a key server round trip each time.
//
// # Collaborators
//
// Every side effect goes through a narrow interface (Downloader, KeyStore,
// Extractor, Cache, PathRegistrar, Recorder) so tests substitute fakes. The
// production implementations live in internal/keystore, internal/archive,
// internal/toolcache, internal/shell and internal/receipt.
package toolchain
