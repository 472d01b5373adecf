package keystore

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args and returns combined stdout and stderr.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	//nolint:gosec // G204: arguments are built internally from validated config
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// ErrNoValidSignature is returned when gpg reports success without a VALIDSIG status.
var ErrNoValidSignature = errors.New("gpg reported no valid signature")

// GPGStore uses the host gpg binary and its keyring.
type GPGStore struct {
	binary  string
	homeDir string
	runner  Runner
}

// NewGPGStore creates a store driving binary (default "gpg"). An empty
// homeDir uses gpg's default keyring.
func NewGPGStore(binary, homeDir string, runner Runner) *GPGStore {
	if binary == "" {
		binary = "gpg"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &GPGStore{binary: binary, homeDir: homeDir, runner: runner}
}

// Import runs gpg --import on keysPath.
func (s *GPGStore) Import(ctx context.Context, keysPath string) error {
	if _, err := s.run(ctx, "--import", keysPath); err != nil {
		return fmt.Errorf("import keys: %w", err)
	}
	return nil
}

// Refresh runs gpg --keyserver keyserver --refresh-keys publisher.
func (s *GPGStore) Refresh(ctx context.Context, keyserver, publisher string) error {
	if _, err := s.run(ctx, "--keyserver", keyserver, "--refresh-keys", publisher); err != nil {
		return fmt.Errorf("refresh keys: %w", err)
	}
	return nil
}

// Verify runs gpg --verify and returns the fingerprint from the VALIDSIG status line.
func (s *GPGStore) Verify(ctx context.Context, signaturePath, payloadPath string) (string, error) {
	out, err := s.run(ctx, "--status-fd", "1", "--verify", signaturePath, payloadPath)
	if err != nil {
		return "", fmt.Errorf("verify signature: %w", err)
	}

	fpr, ok := parseValidSig(out)
	if !ok {
		return "", ErrNoValidSignature
	}
	return fpr, nil
}

func (s *GPGStore) run(ctx context.Context, args ...string) ([]byte, error) {
	full := []string{"--batch", "--no-tty"}
	if s.homeDir != "" {
		full = append(full, "--homedir", s.homeDir)
	}
	full = append(full, args...)

	out, err := s.runner.Run(ctx, s.binary, full...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return out, fmt.Errorf("%s %s: %w", s.binary, args[0], err)
		}
		return out, fmt.Errorf("%s %s: %w: %s", s.binary, args[0], err, msg)
	}
	return out, nil
}

// parseValidSig extracts the fingerprint from "[GNUPG:] VALIDSIG <fpr> ...".
func parseValidSig(out []byte) (string, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 3 && fields[0] == "[GNUPG:]" && fields[1] == "VALIDSIG" {
			return strings.ToUpper(fields[2]), true
		}
	}
	return "", false
}
