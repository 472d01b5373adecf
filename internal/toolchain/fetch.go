package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Fetcher resolves a release and downloads its payload and signature.
type Fetcher struct {
	downloader Downloader
	host       string
	logger     *slog.Logger
}

// NewFetcher creates a fetcher for releases published under host.
func NewFetcher(downloader Downloader, host string, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		downloader: downloader,
		host:       host,
		logger:     orDiscard(logger),
	}
}

// Fetch downloads the payload and signature for release into dir. Both
// downloads run concurrently; if either fails the other is cancelled.
func (f *Fetcher) Fetch(ctx context.Context, release *Release, dir string) (*Artifact, error) {
	artifact := &Artifact{
		PayloadPath:   filepath.Join(dir, release.ArchiveName+ArchiveExt),
		SignaturePath: filepath.Join(dir, release.ArchiveName+ArchiveExt+SignatureSuffix),
		ArchiveName:   release.ArchiveName,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f.logger.Debug("downloading payload", "url", release.URL)
		if err := f.downloader.Download(gctx, release.URL, artifact.PayloadPath); err != nil {
			return fmt.Errorf("download payload: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		f.logger.Debug("downloading signature", "url", release.SignatureURL)
		if err := f.downloader.Download(gctx, release.SignatureURL, artifact.SignaturePath); err != nil {
			return fmt.Errorf("download signature: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return artifact, nil
}
