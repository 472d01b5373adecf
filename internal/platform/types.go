// Package platform detects the host the installer runs on and describes the
// target platform a toolchain release is built for.
//
// Host detection uses runtime.GOOS/GOARCH plus gopsutil for the Linux
// distribution id and release. The result feeds two things: the installer's
// host guard (toolchains are only published for Linux) and the default
// Descriptor used to pick a release and key the cache.
package platform

import (
	"context"
	"fmt"
	"strings"
)

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, Amazon Linux
	FamilyFedora  = "fedora"  // Fedora
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Info contains host detection information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // "amd64", "arm64" (normalized)
	ArchRaw  string // original GOARCH
	Platform string // distro ID (Linux only, e.g., "ubuntu")
	Family   string // canonical family (e.g., "debian")
	Version  string // distro version (Linux only, e.g., "22.04")
}

// Distro contains Linux distribution information.
type Distro struct {
	ID      string
	Family  string
	Version string
}

// GetDistro returns distro information if this is a Linux platform.
// Returns nil for non-Linux platforms or if distro detection failed.
func (i *Info) GetDistro() *Distro {
	if i.OS != "linux" || i.Platform == "" {
		return nil
	}
	return &Distro{
		ID:      i.Platform,
		Family:  i.Family,
		Version: i.Version,
	}
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsAMD64 returns true if the architecture is amd64.
func (i *Info) IsAMD64() bool {
	return i.Arch == "amd64"
}

// IsARM64 returns true if the architecture is arm64.
func (i *Info) IsARM64() bool {
	return i.Arch == "arm64"
}

// IsDebianFamily returns true if the Linux distribution is Debian-based.
func (i *Info) IsDebianFamily() bool {
	return i.OS == "linux" && i.Family == FamilyDebian
}

// Descriptor returns the target descriptor for the detected distribution.
func (i *Info) Descriptor() (Descriptor, error) {
	distro := i.GetDistro()
	if distro == nil {
		return Descriptor{}, fmt.Errorf("no Linux distribution detected on %s", i.OS)
	}
	if distro.Version == "" {
		return Descriptor{}, fmt.Errorf("distribution %s has no release version", distro.ID)
	}
	return Descriptor{Name: distro.ID, VersionToken: distro.Version}, nil
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// NamespacePrefix prefixes every cache namespace so toolchain entries never
// collide with other tools sharing the same cache root.
const NamespacePrefix = "swift-"

// Descriptor identifies the platform a toolchain release targets.
type Descriptor struct {
	// Name is the distribution name ("ubuntu"); it scopes the cache key.
	Name string
	// VersionToken is the distribution release ("20.04").
	VersionToken string
}

// Namespace returns the cache namespace for the descriptor.
func (d Descriptor) Namespace() string {
	return NamespacePrefix + d.Name
}

// String returns "name:version".
func (d Descriptor) String() string {
	return d.Name + ":" + d.VersionToken
}

// Validate checks that both fields are present.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("platform name is required")
	}
	if strings.TrimSpace(d.VersionToken) == "" {
		return fmt.Errorf("platform version is required")
	}
	if strings.ContainsAny(d.Name, `/\`) || d.Name == "." || d.Name == ".." {
		return fmt.Errorf("invalid platform name: %q", d.Name)
	}
	return nil
}

// ParseDescriptor parses the "name:version" form accepted on the command line.
func ParseDescriptor(s string) (Descriptor, error) {
	name, version, ok := strings.Cut(s, ":")
	if !ok {
		return Descriptor{}, fmt.Errorf("invalid platform %q: expected name:version", s)
	}
	d := Descriptor{
		Name:         normalizePlatform(name),
		VersionToken: strings.TrimSpace(version),
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}
