package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

const (
	// DefaultKeysURL is the publisher's full keys document.
	DefaultKeysURL = "https://swift.org/keys/all-keys.asc"
	// DefaultKeyserver is queried to refresh the imported keys.
	DefaultKeyserver = "hkp://keyserver.ubuntu.com"
	// DefaultPublisher selects the keys to refresh.
	DefaultPublisher = "Swift"
)

// KeyProvisioner populates a KeyStore with the publisher's current keys.
type KeyProvisioner struct {
	downloader Downloader
	store      KeyStore
	keysURL    string
	keyserver  string
	publisher  string
	logger     *slog.Logger
}

// NewKeyProvisioner creates a provisioner. Empty strings select the defaults.
func NewKeyProvisioner(downloader Downloader, store KeyStore, keysURL, keyserver, publisher string, logger *slog.Logger) *KeyProvisioner {
	if keysURL == "" {
		keysURL = DefaultKeysURL
	}
	if keyserver == "" {
		keyserver = DefaultKeyserver
	}
	if publisher == "" {
		publisher = DefaultPublisher
	}
	return &KeyProvisioner{
		downloader: downloader,
		store:      store,
		keysURL:    keysURL,
		keyserver:  keyserver,
		publisher:  publisher,
		logger:     orDiscard(logger),
	}
}

// ProvisionKeys downloads the keys document into dir, imports it and
// refreshes the publisher's keys. Every step must succeed.
func (p *KeyProvisioner) ProvisionKeys(ctx context.Context, dir string) error {
	keysPath := filepath.Join(dir, "all-keys.asc")

	p.logger.Debug("downloading keys", "url", p.keysURL)
	if err := p.downloader.Download(ctx, p.keysURL, keysPath); err != nil {
		return fmt.Errorf("download keys: %w", err)
	}

	p.logger.Debug("importing keys", "path", keysPath)
	if err := p.store.Import(ctx, keysPath); err != nil {
		return fmt.Errorf("import keys: %w", err)
	}

	p.logger.Debug("refreshing keys", "keyserver", p.keyserver, "publisher", p.publisher)
	if err := p.store.Refresh(ctx, p.keyserver, p.publisher); err != nil {
		return fmt.Errorf("refresh keys: %w", err)
	}

	return nil
}
