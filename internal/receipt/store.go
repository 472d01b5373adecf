// Package receipt records toolchain installs in a SQLite database.
//
// Receipts are informational. The tool cache's .complete markers decide what
// is installed; a receipt adds when it happened, which archive it came from
// and who signed it.
package receipt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ZebulonRouseFrantzich/swiftup/internal/toolchain"
)

// FileName is the receipt database name inside the swiftup directory.
const FileName = "receipts.db"

const schema = `
CREATE TABLE IF NOT EXISTS receipts (
    namespace    TEXT NOT NULL,
    version      TEXT NOT NULL,
    arch         TEXT NOT NULL,
    platform     TEXT NOT NULL DEFAULT '',
    root         TEXT NOT NULL,
    archive      TEXT NOT NULL DEFAULT '',
    signer       TEXT NOT NULL DEFAULT '',
    installed_at TEXT NOT NULL,
    PRIMARY KEY (namespace, version, arch)
);
`

// ErrNotFound is returned when no receipt matches.
var ErrNotFound = errors.New("receipt not found")

// Receipt is one recorded install.
type Receipt struct {
	Namespace   string    `json:"namespace" yaml:"namespace"`
	Version     string    `json:"version" yaml:"version"`
	Arch        string    `json:"arch" yaml:"arch"`
	Platform    string    `json:"platform,omitempty" yaml:"platform,omitempty"`
	Root        string    `json:"root" yaml:"root"`
	Archive     string    `json:"archive,omitempty" yaml:"archive,omitempty"`
	Signer      string    `json:"signer,omitempty" yaml:"signer,omitempty"`
	InstalledAt time.Time `json:"installed_at" yaml:"installed_at"`
}

// Store persists receipts. It implements toolchain.Recorder.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	arch string
	now  func() time.Time
}

var _ toolchain.Recorder = (*Store)(nil)

// Open opens or creates the database at path. arch is stamped on every
// receipt the store records.
func Open(path, arch string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create receipt directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open receipt database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create receipt schema: %w", err)
	}

	return &Store{db: db, arch: arch, now: time.Now}, nil
}

// Record stores a receipt for a fresh install. Cache hits are ignored so the
// original receipt keeps its archive and signer.
func (s *Store) Record(ctx context.Context, inst *toolchain.Installation) error {
	if inst == nil || inst.FromCache {
		return nil
	}
	return s.Put(ctx, &Receipt{
		Namespace:   inst.Namespace,
		Version:     inst.Version,
		Arch:        s.arch,
		Platform:    inst.Platform.String(),
		Root:        inst.Root,
		Archive:     inst.ArchiveName,
		Signer:      inst.Signer,
		InstalledAt: s.now(),
	})
}

// Put inserts or replaces r.
func (s *Store) Put(ctx context.Context, r *Receipt) error {
	if r.Namespace == "" || r.Version == "" || r.Arch == "" {
		return fmt.Errorf("receipt requires namespace, version and arch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin receipt transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO receipts
		(namespace, version, arch, platform, root, archive, signer, installed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Namespace, r.Version, r.Arch, r.Platform, r.Root, r.Archive, r.Signer,
		r.InstalledAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert receipt %s/%s: %w", r.Namespace, r.Version, err)
	}

	return tx.Commit()
}

// Get returns the receipt for namespace/version on the store's arch.
func (s *Store) Get(ctx context.Context, namespace, version string) (*Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT namespace, version, arch, platform, root, archive, signer, installed_at
		FROM receipts WHERE namespace = ? AND version = ? AND arch = ?`,
		namespace, version, s.arch)

	r, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", namespace, version, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read receipt: %w", err)
	}
	return r, nil
}

// List returns every receipt ordered by namespace, version and arch.
func (s *Store) List(ctx context.Context) ([]*Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT namespace, version, arch, platform, root, archive, signer, installed_at
		FROM receipts ORDER BY namespace, version, arch`)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

// Remove deletes the receipt for namespace/version on the store's arch.
// Removing a missing receipt is not an error.
func (s *Store) Remove(ctx context.Context, namespace, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM receipts WHERE namespace = ? AND version = ? AND arch = ?",
		namespace, version, s.arch)
	if err != nil {
		return fmt.Errorf("remove receipt %s/%s: %w", namespace, version, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row scanner) (*Receipt, error) {
	var r Receipt
	var installedAt string
	if err := row.Scan(&r.Namespace, &r.Version, &r.Arch, &r.Platform,
		&r.Root, &r.Archive, &r.Signer, &installedAt); err != nil {
		return nil, err
	}
	r.InstalledAt, _ = time.Parse(time.RFC3339, installedAt)
	return &r, nil
}
