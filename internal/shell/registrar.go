package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Registrar adds a directory to an executable search path.
type Registrar interface {
	AddPath(dir string) error
}

// Multi calls every registrar in order and joins their errors.
type Multi []Registrar

// AddPath registers dir with each registrar.
func (m Multi) AddPath(dir string) error {
	var errs []error
	for _, r := range m {
		if err := r.AddPath(dir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GitHubPath appends directories to a GitHub Actions path file.
type GitHubPath struct {
	file string
}

// NewGitHubPath returns a registrar for file. An empty file reads
// $GITHUB_PATH; it returns nil when neither is set.
func NewGitHubPath(file string) *GitHubPath {
	if file == "" {
		file = os.Getenv(EnvGitHubPath)
	}
	if file == "" {
		return nil
	}
	return &GitHubPath{file: file}
}

// File returns the path file location.
func (g *GitHubPath) File() string {
	return g.file
}

// AddPath appends dir on its own line. The runner applies entries in
// order, so later entries take precedence.
func (g *GitHubPath) AddPath(dir string) error {
	if err := validateDir(dir); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(g.file), 0o755); err != nil {
		return &PathFileError{Path: g.file, Message: "failed to create parent directory", Cause: err}
	}

	f, err := os.OpenFile(g.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &PathFileError{Path: g.file, Message: "failed to open file", Cause: err}
	}

	if _, err := f.WriteString(dir + "\n"); err != nil {
		f.Close()
		return &PathFileError{Path: g.file, Message: "failed to append path", Cause: err}
	}
	if err := f.Close(); err != nil {
		return &PathFileError{Path: g.file, Message: "failed to close file", Cause: err}
	}

	return nil
}

// ProcessPath prepends directories to this process's PATH.
type ProcessPath struct{}

// AddPath prepends dir unless it is already the first entry.
func (ProcessPath) AddPath(dir string) error {
	if err := validateDir(dir); err != nil {
		return err
	}

	current := os.Getenv(EnvPath)
	if current == "" {
		return os.Setenv(EnvPath, dir)
	}
	if first, _, _ := strings.Cut(current, string(os.PathListSeparator)); first == dir {
		return nil
	}
	return os.Setenv(EnvPath, dir+string(os.PathListSeparator)+current)
}

// Exporter writes a shell statement that prepends a directory to PATH.
type Exporter struct {
	w     io.Writer
	shell ShellType
}

// NewExporter creates an exporter for shell writing to w.
func NewExporter(w io.Writer, shell ShellType) (*Exporter, error) {
	if err := ValidateShell(shell); err != nil {
		return nil, err
	}
	return &Exporter{w: w, shell: shell}, nil
}

// AddPath writes the export statement for dir.
func (e *Exporter) AddPath(dir string) error {
	line, err := ExportLine(e.shell, dir)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.w, line)
	return err
}

// ExportLine returns the statement that prepends dir to PATH in shell.
func ExportLine(shell ShellType, dir string) (string, error) {
	if err := ValidateShell(shell); err != nil {
		return "", err
	}
	if err := validateDir(dir); err != nil {
		return "", err
	}

	switch shell {
	case ShellFish:
		return fmt.Sprintf("set -gx PATH %s $PATH", singleQuote(dir)), nil
	default:
		return fmt.Sprintf(`export PATH=%s:"$PATH"`, singleQuote(dir)), nil
	}
}

// singleQuote quotes s for POSIX shells and fish.
func singleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func validateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("path is empty")
	}
	if strings.ContainsAny(dir, "\n\r") {
		return fmt.Errorf("path contains a line break: %q", dir)
	}
	if strings.ContainsRune(dir, os.PathListSeparator) {
		return fmt.Errorf("path contains %q: %s", os.PathListSeparator, dir)
	}
	return nil
}
