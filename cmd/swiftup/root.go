package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/swiftup/internal/archive"
	"github.com/ZebulonRouseFrantzich/swiftup/internal/config"
	"github.com/ZebulonRouseFrantzich/swiftup/internal/keystore"
	"github.com/ZebulonRouseFrantzich/swiftup/internal/platform"
	"github.com/ZebulonRouseFrantzich/swiftup/internal/receipt"
	"github.com/ZebulonRouseFrantzich/swiftup/internal/shell"
	"github.com/ZebulonRouseFrantzich/swiftup/internal/toolcache"
	"github.com/ZebulonRouseFrantzich/swiftup/internal/toolchain"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	debug      bool
	platform   string
	verifier   string
	cacheDir   string
	host       string
	githubPath string
	progress   bool
}

// app carries state shared by subcommands. Tests replace detector and
// hostOS.
type app struct {
	flags    globalFlags
	detector platform.Detector
	hostOS   string

	dir    string
	cfg    *config.Config
	info   *platform.Info
	logger *slog.Logger
}

func newApp() *app {
	return &app{detector: platform.NewDetector()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "swiftup",
		Short:         "Install verified Swift toolchains into a tool cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.BoolVar(&a.flags.debug, "debug", false, "Enable debug logging")
	f.StringVar(&a.flags.platform, "platform", "", "Target distribution as name:version (default: detected)")
	f.StringVar(&a.flags.verifier, "verifier", "", "Signature backend: openpgp or gpg")
	f.StringVar(&a.flags.cacheDir, "cache-dir", "", "Tool cache root")
	f.StringVar(&a.flags.host, "host", "", "Release download host")
	f.StringVar(&a.flags.githubPath, "github-path", "", "Append bin directories to this file (default: $GITHUB_PATH)")
	f.BoolVar(&a.flags.progress, "progress", false, "Show download progress on stderr")

	root.AddCommand(
		newInstallCmd(a),
		newEnvCmd(a),
		newExecCmd(a),
		newListCmd(a),
		newRemoveCmd(a),
		newInitCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup resolves the configuration and logger for a command invocation.
func (a *app) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	a.dir = dir

	info, err := a.detector.Detect(ctx)
	if err != nil {
		return fmt.Errorf("detect platform: %w", err)
	}
	a.info = info

	cfg, err := config.Load(ctx, config.NewParser(a.detector), dir)
	if err != nil {
		return err
	}
	if err := a.applyFlags(cmd, cfg); err != nil {
		return err
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	a.logger.Debug("configuration loaded", "dir", dir, "host", cfg.Host, "verifier", cfg.Verifier, "os", info.OS, "arch", info.Arch)
	return nil
}

// applyFlags overlays explicitly set flags onto cfg and revalidates it.
func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	overlay := &config.Config{}

	if flags.Changed("platform") {
		d, err := platform.ParseDescriptor(a.flags.platform)
		if err != nil {
			return fmt.Errorf("--platform: %w", err)
		}
		overlay.Platform = config.PlatformConfig{Name: d.Name, Version: d.VersionToken}
	}
	if flags.Changed("verifier") {
		overlay.Verifier = a.flags.verifier
	}
	if flags.Changed("cache-dir") {
		abs, err := filepath.Abs(a.flags.cacheDir)
		if err != nil {
			return fmt.Errorf("--cache-dir: %w", err)
		}
		overlay.CacheDir = abs
	}
	if flags.Changed("host") {
		overlay.Host = a.flags.host
	}
	if flags.Changed("debug") {
		overlay.SetDebug(a.flags.debug)
	}

	cfg.Merge(overlay)
	return cfg.Validate()
}

// target returns the distribution to install for. Off Linux it returns the
// zero descriptor so the installer reports the unsupported host itself.
func (a *app) target() (platform.Descriptor, error) {
	if d, ok := a.cfg.Descriptor(); ok {
		return d, nil
	}
	if !a.info.IsLinux() {
		return platform.Descriptor{}, nil
	}
	d, err := a.info.Descriptor()
	if err != nil {
		return platform.Descriptor{}, fmt.Errorf("%w (pass --platform name:version)", err)
	}
	return d, nil
}

// version returns the requested version: the argument, else the configured
// default.
func (a *app) version(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if a.cfg.Version != "" {
		return a.cfg.Version, nil
	}
	return "", fmt.Errorf("no version given and none configured in %s", filepath.Join(a.dir, config.FileName))
}

func (a *app) cache() *toolcache.Store {
	return toolcache.NewStore(a.cfg.CacheRoot(a.dir), a.info.Arch, a.logger)
}

func (a *app) keyStore() toolchain.KeyStore {
	if a.cfg.Verifier == config.VerifierGPG {
		return keystore.NewGPGStore(a.cfg.GPG.Binary, a.cfg.GPG.HomeDir, keystore.ExecRunner{})
	}
	return keystore.NewOpenPGPStore(filepath.Join(a.dir, "keyrings"), a.cfg.Keys.Publisher, nil)
}

func (a *app) openReceipts() (*receipt.Store, error) {
	return receipt.Open(filepath.Join(a.dir, receipt.FileName), a.info.Arch)
}

// registrar combines primary, which may be nil, with the GitHub Actions
// path file when one is configured.
func (a *app) registrar(primary shell.Registrar) shell.Registrar {
	var regs shell.Multi
	if primary != nil {
		regs = append(regs, primary)
	}
	if gh := shell.NewGitHubPath(a.flags.githubPath); gh != nil {
		a.logger.Debug("registering with path file", "file", gh.File())
		regs = append(regs, gh)
	}
	return regs
}

// install runs the installer with the given path registrar and returns the
// result. A receipt store that cannot be opened only costs the receipt.
func (a *app) install(ctx context.Context, version string, reg shell.Registrar, progress io.Writer) (*toolchain.Installation, error) {
	target, err := a.target()
	if err != nil {
		return nil, err
	}

	downloader := toolchain.NewHTTPDownloader(nil)
	if a.flags.progress && progress != nil {
		downloader = downloader.WithProgress(progress)
	}

	opts := toolchain.Options{
		Host:          a.cfg.Host,
		KeysURL:       a.cfg.Keys.URL,
		Keyserver:     a.cfg.Keys.Keyserver,
		Publisher:     a.cfg.Keys.Publisher,
		Downloader:    downloader,
		KeyStore:      a.keyStore(),
		Extractor:     archive.NewExtractor(),
		Cache:         a.cache(),
		PathRegistrar: a.registrar(reg),
		Logger:        a.logger,
		HostOS:        a.hostOS,
	}

	receipts, err := a.openReceipts()
	if err != nil {
		a.logger.Warn("install receipts disabled", "error", err)
	} else {
		defer receipts.Close()
		opts.Recorder = receipts
	}

	installer, err := toolchain.NewInstaller(opts)
	if err != nil {
		return nil, err
	}
	return installer.Install(ctx, version, target)
}

// formatError renders err for the terminal.
func (a *app) formatError(err error) string {
	return config.FormatError(err, a.cfg != nil && a.cfg.Debug)
}
