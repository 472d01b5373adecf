package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct {
	goos   string
	goarch string
	lookup func(ctx context.Context) (platform, family, version string, err error)
}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{
		goos:   runtime.GOOS,
		goarch: runtime.GOARCH,
		lookup: host.PlatformInformationWithContext,
	}
}

// Detect performs platform detection and returns platform information.
//
// On Linux, if gopsutil fails to read the distribution, the distro fields
// are left empty and detection still succeeds. Callers that need a
// Descriptor then get an error from Info.Descriptor and can ask the user
// to pass one explicitly.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      d.goos,
		ArchRaw: d.goarch,
	}

	arch, err := normalizeArch(d.goarch)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}
	info.Arch = arch

	if d.goos != "linux" {
		return info, nil
	}

	platform, family, version, err := d.lookup(ctx)
	if err != nil {
		// Cancellation is a hard failure, anything else falls back to OS/arch only
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return info, nil
	}

	platform = normalizePlatform(platform)
	if platform != "" {
		info.Platform = platform
		info.Family = mapFamily(family)
		info.Version = normalizePlatform(version)
	}

	return info, nil
}
