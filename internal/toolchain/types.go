package toolchain

import (
	"context"

	"github.com/ZebulonRouseFrantzich/swiftup/internal/platform"
)

// Downloader fetches a remote resource to a local file.
type Downloader interface {
	// Download writes url to destPath. destPath must not exist as a
	// complete file unless the download succeeded.
	Download(ctx context.Context, url, destPath string) error
}

// KeyStore is the trust store signatures are checked against.
type KeyStore interface {
	// Import adds the keys in the document at keysPath.
	Import(ctx context.Context, keysPath string) error
	// Refresh re-fetches the keys for publisher from keyserver.
	Refresh(ctx context.Context, keyserver, publisher string) error
	// Verify checks a detached signature and returns the signer fingerprint.
	Verify(ctx context.Context, signaturePath, payloadPath string) (string, error)
}

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// Cache is a keyed directory store for verified installations.
type Cache interface {
	// Find returns the installation root for (namespace, version), or ""
	// when nothing is cached. Absence is not an error.
	Find(namespace, version string) (string, error)
	// Put moves sourceDir into the cache and returns the installation root.
	// Either the complete directory is recorded or nothing is.
	Put(ctx context.Context, sourceDir, namespace, version string) (string, error)
	// TempDir returns a fresh scratch directory on the cache's filesystem.
	TempDir() (string, error)
}

// PathRegistrar exposes a directory on the caller's executable search path.
type PathRegistrar interface {
	AddPath(dir string) error
}

// Recorder keeps a record of completed installs.
type Recorder interface {
	Record(ctx context.Context, inst *Installation) error
}

// Release describes where a toolchain release is published.
type Release struct {
	Version         string
	PlatformVersion string
	// ArchiveName is the archive file name without extension. It is also
	// the top-level directory inside the archive.
	ArchiveName  string
	URL          string
	SignatureURL string
}

// Artifact is a downloaded payload and its detached signature.
type Artifact struct {
	PayloadPath   string
	SignaturePath string
	ArchiveName   string
}

// Installation is the result of a successful install.
type Installation struct {
	Version   string
	Platform  platform.Descriptor
	Namespace string
	Root      string
	BinPath   string
	// ArchiveName and Signer are empty when the install was served from cache.
	ArchiveName string
	Signer      string
	FromCache   bool
}
