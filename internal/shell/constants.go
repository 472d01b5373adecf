package shell

// Environment variables read or written by path registration
const (
	// EnvGitHubPath names the file GitHub Actions reads extra PATH entries from
	EnvGitHubPath = "GITHUB_PATH"

	// EnvPath is the executable search path
	EnvPath = "PATH"

	// EnvShell is the user's login shell
	EnvShell = "SHELL"
)
