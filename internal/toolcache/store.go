// Package toolcache is an on-disk directory cache for installed toolchains.
//
// Layout:
//
//	<root>/<namespace>/<version>/<arch>/           installation root
//	<root>/<namespace>/<version>/<arch>.complete   commit marker
//	<root>/<namespace>.lock                        per-namespace writer lock
//	<root>/.tmp/                                   scratch space
//
// An entry without its marker is invisible to readers and is replaced by
// the next Put. <arch> is the Go architecture name (amd64, arm64), so the
// tree sits beside, not inside, entries a GitHub Actions runner keeps under
// x64 in $RUNNER_TOOL_CACHE.
package toolcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/ZebulonRouseFrantzich/swiftup/internal/transaction"
)

const (
	markerSuffix = ".complete"
	scratchDir   = ".tmp"
)

// ErrNotFound is returned by Remove when no complete entry exists.
var ErrNotFound = errors.New("toolchain not cached")

// Entry is one committed installation.
type Entry struct {
	Namespace   string
	Version     string
	Arch        string
	Path        string
	CompletedAt time.Time
}

// Store is a cache rooted at a directory for a single architecture.
type Store struct {
	root   string
	arch   string
	logger *slog.Logger
}

// NewStore creates a store. arch is usually the Go GOARCH of the host.
func NewStore(root, arch string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{root: root, arch: arch, logger: logger}
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// Find returns the installation root, or "" when no complete entry exists.
func (s *Store) Find(namespace, version string) (string, error) {
	if err := validateKey(namespace, version); err != nil {
		return "", err
	}

	dir := s.entryPath(namespace, version)
	if _, err := os.Stat(dir + markerSuffix); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("stat marker: %w", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("cache marker without directory", "path", dir)
			return "", nil
		}
		return "", fmt.Errorf("stat entry: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("cache entry %s is not a directory", dir)
	}

	return dir, nil
}

// Put moves sourceDir into the cache under (namespace, version) and writes
// the commit marker. sourceDir should live under TempDir so the move is a
// rename; otherwise the tree is copied.
func (s *Store) Put(ctx context.Context, sourceDir, namespace, version string) (string, error) {
	if err := validateKey(namespace, version); err != nil {
		return "", err
	}

	lock, err := transaction.WaitLock(ctx, s.root, namespace, transaction.DefaultPollInterval)
	if err != nil {
		return "", fmt.Errorf("lock %s: %w", namespace, err)
	}
	defer lock.Release()

	dest := s.entryPath(namespace, version)
	marker := dest + markerSuffix

	if _, err := os.Stat(marker); err == nil {
		s.logger.Debug("entry committed concurrently", "path", dest)
		return dest, nil
	}

	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("remove incomplete entry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create entry dir: %w", err)
	}

	if err := os.Rename(sourceDir, dest); err != nil {
		if !errors.Is(err, syscall.EXDEV) {
			return "", fmt.Errorf("move into cache: %w", err)
		}
		s.logger.Debug("source on another filesystem, copying", "source", sourceDir)
		if err := copyInto(sourceDir, dest); err != nil {
			os.RemoveAll(dest + ".partial")
			return "", err
		}
	}

	stamp := []byte(time.Now().UTC().Format(time.RFC3339) + "\n")
	if err := os.WriteFile(marker, stamp, 0o644); err != nil {
		return "", fmt.Errorf("write marker: %w", err)
	}

	return dest, nil
}

// TempDir creates a fresh scratch directory under the cache root.
func (s *Store) TempDir() (string, error) {
	base := filepath.Join(s.root, scratchDir)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	dir, err := os.MkdirTemp(base, "install-")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, nil
}

// List returns every committed entry for any architecture, sorted by
// namespace then version.
func (s *Store) List() ([]Entry, error) {
	namespaces, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache root: %w", err)
	}

	var entries []Entry
	for _, ns := range namespaces {
		if !ns.IsDir() || strings.HasPrefix(ns.Name(), ".") {
			continue
		}
		versions, err := os.ReadDir(filepath.Join(s.root, ns.Name()))
		if err != nil {
			return nil, fmt.Errorf("read namespace %s: %w", ns.Name(), err)
		}
		for _, v := range versions {
			if !v.IsDir() {
				continue
			}
			found, err := s.listVersion(ns.Name(), v.Name())
			if err != nil {
				return nil, err
			}
			entries = append(entries, found...)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Namespace != entries[j].Namespace {
			return entries[i].Namespace < entries[j].Namespace
		}
		if entries[i].Version != entries[j].Version {
			return entries[i].Version < entries[j].Version
		}
		return entries[i].Arch < entries[j].Arch
	})

	return entries, nil
}

func (s *Store) listVersion(namespace, version string) ([]Entry, error) {
	dir := filepath.Join(s.root, namespace, version)
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read version %s/%s: %w", namespace, version, err)
	}

	var entries []Entry
	for _, f := range files {
		arch, ok := strings.CutSuffix(f.Name(), markerSuffix)
		if !ok || f.IsDir() {
			continue
		}
		path := filepath.Join(dir, arch)
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			continue
		}
		entry := Entry{Namespace: namespace, Version: version, Arch: arch, Path: path}
		if info, err := f.Info(); err == nil {
			entry.CompletedAt = info.ModTime()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Remove deletes the entry for (namespace, version) on this store's
// architecture. The marker goes first so readers never see a half-deleted
// tree as complete.
func (s *Store) Remove(ctx context.Context, namespace, version string) error {
	if err := validateKey(namespace, version); err != nil {
		return err
	}

	lock, err := transaction.WaitLock(ctx, s.root, namespace, transaction.DefaultPollInterval)
	if err != nil {
		return fmt.Errorf("lock %s: %w", namespace, err)
	}
	defer lock.Release()

	dest := s.entryPath(namespace, version)
	if err := os.Remove(dest + markerSuffix); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s %s", ErrNotFound, namespace, version)
		}
		return fmt.Errorf("remove marker: %w", err)
	}
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("remove entry: %w", err)
	}

	// Drop now-empty parents; failures just leave an empty directory.
	versionDir := filepath.Dir(dest)
	if os.Remove(versionDir) == nil {
		os.Remove(filepath.Dir(versionDir))
	}

	return nil
}

func (s *Store) entryPath(namespace, version string) string {
	return filepath.Join(s.root, namespace, version, s.arch)
}

func validateKey(namespace, version string) error {
	for _, part := range []struct{ name, value string }{
		{"namespace", namespace},
		{"version", version},
	} {
		if strings.TrimSpace(part.value) == "" {
			return fmt.Errorf("%s is required", part.name)
		}
		if part.value == "." || part.value == ".." || strings.HasPrefix(part.value, ".") ||
			strings.ContainsAny(part.value, `/\`) {
			return fmt.Errorf("invalid %s: %q", part.name, part.value)
		}
	}
	return nil
}
