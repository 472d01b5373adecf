// Package shell exposes an installed toolchain's bin directory to the
// environment that invoked swiftup.
//
// Three registrars implement the installer's path capability:
//   - GitHubPath appends to the file named by $GITHUB_PATH so later steps
//     of a GitHub Actions job see the directory.
//   - ProcessPath prepends to this process's PATH so child processes see it.
//   - Exporter writes a shell statement (`export PATH=...` or fish's
//     `set -gx PATH ...`) for the user to eval.
//
// Multi fans a single AddPath out to several registrars.
//
// # Shell Detection
//
// Shell detection tries, in order:
//  1. $SHELL environment variable (most reliable)
//  2. The parent process name, via gopsutil
package shell
