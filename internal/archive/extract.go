// Package archive extracts toolchain tarballs.
//
// The compression is sniffed from the file header rather than trusted from
// the file name: gzip, zstd, xz and bzip2 are recognised, anything else is
// read as a plain tar stream. Every entry is confined to the destination
// directory; entries or links that would escape it abort the extraction, as
// does any entry written beneath a symlink extracted earlier.
package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// ErrIllegalPath is returned for entries that resolve outside the destination.
var ErrIllegalPath = errors.New("illegal path in archive")

// Format identifies the compression wrapped around a tar stream.
type Format string

const (
	FormatTar   Format = "tar"
	FormatGzip  Format = "gzip"
	FormatZstd  Format = "zstd"
	FormatXz    Format = "xz"
	FormatBzip2 Format = "bzip2"
)

var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicXz    = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
	magicBzip2 = []byte{0x42, 0x5a, 0x68}
)

// DetectFormat inspects the leading bytes of a stream.
func DetectFormat(header []byte) Format {
	switch {
	case bytes.HasPrefix(header, magicZstd):
		return FormatZstd
	case bytes.HasPrefix(header, magicGzip):
		return FormatGzip
	case bytes.HasPrefix(header, magicXz):
		return FormatXz
	case bytes.HasPrefix(header, magicBzip2):
		return FormatBzip2
	default:
		return FormatTar
	}
}

// Extractor unpacks tar archives.
type Extractor struct{}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract unpacks archivePath into destDir, creating destDir if needed.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	reader, closeFn, err := decompress(bufio.NewReader(archiveFile))
	if err != nil {
		return err
	}
	defer closeFn()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}
	root := filepath.Clean(destDir)

	tarReader := tar.NewReader(reader)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := confine(root, header.Name)
		if err != nil {
			return err
		}
		if err := noSymlinkParents(root, target); err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirMode(header)); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			// Replace rather than write through an earlier link of the same name
			if err := removeSymlink(target); err != nil {
				return err
			}
			if err := writeFile(target, tarReader, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}

		case tar.TypeSymlink:
			// Link targets are resolved relative to the link's directory
			linkTarget := header.Linkname
			if !filepath.IsAbs(linkTarget) {
				linkTarget = filepath.Join(filepath.Dir(header.Name), linkTarget)
			}
			if _, err := confine(root, linkTarget); err != nil {
				return fmt.Errorf("symlink %s -> %s: %w", header.Name, header.Linkname, err)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", target, err)
			}

		case tar.TypeLink:
			source, err := confine(root, header.Linkname)
			if err != nil {
				return fmt.Errorf("hard link %s -> %s: %w", header.Name, header.Linkname, err)
			}
			if err := noSymlinkParents(root, source); err != nil {
				return fmt.Errorf("hard link %s -> %s: %w", header.Name, header.Linkname, err)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			os.Remove(target)
			if err := os.Link(source, target); err != nil {
				return fmt.Errorf("create hard link %s: %w", target, err)
			}

		default:
			// Skip other types (char devices, block devices, fifos)
			continue
		}
	}
}

// confine joins name onto root and rejects results outside root.
func confine(root, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrIllegalPath, name)
	}
	target := filepath.Join(root, name)
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrIllegalPath, name)
	}
	return target, nil
}

// noSymlinkParents rejects target when any directory between root and target
// is a symlink on disk. Link targets are checked as text when the link is
// created, so a chain of links could otherwise redirect later entries.
func noSymlinkParents(root, target string) error {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrIllegalPath, target)
	}
	parts := strings.Split(rel, string(os.PathSeparator))

	dir := root
	for _, part := range parts[:len(parts)-1] {
		dir = filepath.Join(dir, part)
		info, err := os.Lstat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stat %s: %w", dir, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s is below symlink %s", ErrIllegalPath, rel, dir)
		}
	}
	return nil
}

func removeSymlink(target string) error {
	info, err := os.Lstat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", target, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return nil
	}
	if err := os.Remove(target); err != nil {
		return fmt.Errorf("replace symlink %s: %w", target, err)
	}
	return nil
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}

	if _, err := io.Copy(outFile, r); err != nil {
		outFile.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}

	return outFile.Close()
}

func dirMode(h *tar.Header) os.FileMode {
	mode := h.FileInfo().Mode().Perm()
	// Directories must stay traversable and writable for the rest of the walk
	return mode | 0o700
}

// decompress wraps r according to its magic bytes.
func decompress(r *bufio.Reader) (io.Reader, func(), error) {
	noop := func() {}

	header, _ := r.Peek(6)

	switch DetectFormat(header) {
	case FormatZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return zr, zr.Close, nil

	case FormatGzip:
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return gzr, func() { gzr.Close() }, nil

	case FormatXz:
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("xz: %w", err)
		}
		return xzr, noop, nil

	case FormatBzip2:
		return bzip2.NewReader(r), noop, nil

	default:
		return r, noop, nil
	}
}
