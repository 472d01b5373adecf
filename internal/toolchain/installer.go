package toolchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ZebulonRouseFrantzich/swiftup/internal/platform"
)

// SupportedOS is the only host toolchains are published for.
const SupportedOS = "linux"

// Options configures an Installer.
type Options struct {
	// Host serves releases; defaults to DefaultHost.
	Host string
	// KeysURL, Keyserver and Publisher configure key provisioning.
	KeysURL   string
	Keyserver string
	Publisher string

	Downloader    Downloader
	KeyStore      KeyStore
	Extractor     Extractor
	Cache         Cache
	PathRegistrar PathRegistrar
	// Recorder is optional.
	Recorder Recorder

	Logger *slog.Logger
	// HostOS overrides runtime.GOOS for the platform guard.
	HostOS string
}

// Installer drives the install state machine.
type Installer struct {
	host        string
	hostOS      string
	provisioner *KeyProvisioner
	fetcher     *Fetcher
	verifier    *Verifier
	extractor   Extractor
	cache       Cache
	registrar   PathRegistrar
	recorder    Recorder
	logger      *slog.Logger
}

// NewInstaller validates opts and creates an Installer.
func NewInstaller(opts Options) (*Installer, error) {
	switch {
	case opts.Downloader == nil:
		return nil, fmt.Errorf("downloader is required")
	case opts.KeyStore == nil:
		return nil, fmt.Errorf("key store is required")
	case opts.Extractor == nil:
		return nil, fmt.Errorf("extractor is required")
	case opts.Cache == nil:
		return nil, fmt.Errorf("cache is required")
	case opts.PathRegistrar == nil:
		return nil, fmt.Errorf("path registrar is required")
	}

	logger := orDiscard(opts.Logger)
	hostOS := opts.HostOS
	if hostOS == "" {
		hostOS = runtime.GOOS
	}

	return &Installer{
		host:        opts.Host,
		hostOS:      hostOS,
		provisioner: NewKeyProvisioner(opts.Downloader, opts.KeyStore, opts.KeysURL, opts.Keyserver, opts.Publisher, logger),
		fetcher:     NewFetcher(opts.Downloader, opts.Host, logger),
		verifier:    NewVerifier(opts.KeyStore),
		extractor:   opts.Extractor,
		cache:       opts.Cache,
		registrar:   opts.PathRegistrar,
		recorder:    opts.Recorder,
		logger:      logger,
	}, nil
}

// attempt carries the values produced by one install as it moves through
// the states.
type attempt struct {
	version   string
	target    platform.Descriptor
	namespace string
	release   *Release
	workDir   string
	artifact  *Artifact
	signer    string
	root      string
	fromCache bool
}

// Install ensures version for target is cached and exposes its bin
// directory. Every failure, including running on an unsupported host, is
// returned as an error; pipeline failures are *StageError values.
func (i *Installer) Install(ctx context.Context, version string, target platform.Descriptor) (*Installation, error) {
	if i.hostOS != SupportedOS {
		i.logger.Error("toolchains are only available for linux", "host", i.hostOS)
		return nil, fmt.Errorf("%w: %s", ErrWrongPlatform, i.hostOS)
	}

	version = strings.TrimSpace(version)
	if version == "" {
		return nil, fmt.Errorf("%w: version is required", ErrInvalidRequest)
	}
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	release, err := NewRelease(i.host, version, target.VersionToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	a := &attempt{
		version:   version,
		target:    target,
		namespace: target.Namespace(),
		release:   release,
	}
	defer a.cleanup(i.logger)

	state := StateCheckingCache
	for {
		i.logger.Debug("install state", "state", state.String(), "namespace", a.namespace, "version", a.version)

		next, err := i.step(ctx, state, a)
		if err != nil {
			i.logger.Debug("install state", "state", StateFailed.String(), "failed_in", state.String(), "error", err)
			return nil, err
		}
		if next == StatePathExposed {
			break
		}
		state = next
	}

	inst := &Installation{
		Version:     a.version,
		Platform:    a.target,
		Namespace:   a.namespace,
		Root:        a.root,
		BinPath:     filepath.Join(a.root, "usr", "bin"),
		ArchiveName: a.release.ArchiveName,
		Signer:      a.signer,
		FromCache:   a.fromCache,
	}
	if a.fromCache {
		inst.ArchiveName = ""
	}

	if err := i.registrar.AddPath(inst.BinPath); err != nil {
		return nil, stageError(StatePathExposed, ErrPathRegistration, err)
	}
	i.logger.Debug("install state", "state", StatePathExposed.String(), "path", inst.BinPath)

	if !a.fromCache && i.recorder != nil {
		if err := i.recorder.Record(ctx, inst); err != nil {
			i.logger.Warn("failed to record install", "namespace", a.namespace, "version", a.version, "error", err)
		}
	}

	return inst, nil
}

// step runs one state and returns the next.
func (i *Installer) step(ctx context.Context, state State, a *attempt) (State, error) {
	if err := ctx.Err(); err != nil && state != StateCached {
		return StateFailed, stageError(state, kindOf(state), err)
	}

	switch state {
	case StateCheckingCache:
		root, err := i.cache.Find(a.namespace, a.version)
		if err != nil {
			return StateFailed, stageError(state, ErrCache, err)
		}
		if strings.TrimSpace(root) == "" {
			i.logger.Debug("no cached toolchain", "namespace", a.namespace, "version", a.version)
			return StateProvisioning, nil
		}
		a.root = root
		a.fromCache = true
		return StateCached, nil

	case StateProvisioning:
		dir, err := i.cache.TempDir()
		if err != nil {
			return StateFailed, stageError(state, ErrCache, err)
		}
		a.workDir = dir
		if err := i.provisioner.ProvisionKeys(ctx, dir); err != nil {
			return StateFailed, stageError(state, ErrKeyProvisioning, err)
		}
		return StateFetching, nil

	case StateFetching:
		artifact, err := i.fetcher.Fetch(ctx, a.release, a.workDir)
		if err != nil {
			return StateFailed, stageError(state, ErrDownload, err)
		}
		a.artifact = artifact
		return StateVerifying, nil

	case StateVerifying:
		signer, err := i.verifier.Verify(ctx, a.artifact)
		if err != nil {
			return StateFailed, stageError(state, ErrVerification, err)
		}
		a.signer = signer
		i.logger.Debug("signature verified", "signer", signer)
		return StateExtracting, nil

	case StateExtracting:
		root, err := i.extractAndCache(ctx, a)
		if err != nil {
			return StateFailed, err
		}
		a.root = root
		return StateCached, nil

	case StateCached:
		i.logger.Debug("toolchain cached", "root", a.root, "from_cache", a.fromCache)
		return StatePathExposed, nil

	default:
		return StateFailed, fmt.Errorf("unexpected install state %s", state)
	}
}

func (i *Installer) extractAndCache(ctx context.Context, a *attempt) (string, error) {
	extractDir := filepath.Join(a.workDir, "extract")
	if err := i.extractor.Extract(ctx, a.artifact.PayloadPath, extractDir); err != nil {
		return "", stageError(StateExtracting, ErrExtraction, err)
	}

	sourceDir := filepath.Join(extractDir, a.artifact.ArchiveName)
	info, err := os.Stat(sourceDir)
	if err != nil {
		return "", stageError(StateExtracting, ErrExtraction,
			fmt.Errorf("archive does not contain %s: %w", a.artifact.ArchiveName, err))
	}
	if !info.IsDir() {
		return "", stageError(StateExtracting, ErrExtraction,
			fmt.Errorf("archive entry %s is not a directory", a.artifact.ArchiveName))
	}

	root, err := i.cache.Put(ctx, sourceDir, a.namespace, a.version)
	if err != nil {
		return "", stageError(StateExtracting, ErrCache, err)
	}
	return root, nil
}

func (a *attempt) cleanup(logger *slog.Logger) {
	if a.workDir == "" {
		return
	}
	if err := os.RemoveAll(a.workDir); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove scratch directory", "path", a.workDir, "error", err)
	}
}

func kindOf(state State) error {
	switch state {
	case StateProvisioning:
		return ErrKeyProvisioning
	case StateFetching:
		return ErrDownload
	case StateVerifying:
		return ErrVerification
	case StateExtracting:
		return ErrExtraction
	default:
		return ErrCache
	}
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
