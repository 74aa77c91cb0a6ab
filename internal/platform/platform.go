// Package platform resolves which host operating system the player runs on.
// The result is computed once at startup and decides which player creator
// is used for the rest of the run.
package platform

import (
	"runtime"
	"strings"
)

// Platform identifies a host family the program knows how to play audio on
type Platform string

const (
	Linux       Platform = "linux"
	Windows     Platform = "windows"
	Unsupported Platform = "unsupported"
)

// Operating system identifiers as reported by runtime.GOOS
const (
	OSLinux   = "linux"
	OSWindows = "windows"
)

// String returns the platform identifier
func (p Platform) String() string {
	return string(p)
}

// IsSupported returns true for platforms that have a player creator
func (p Platform) IsSupported() bool {
	return p == Linux || p == Windows
}

// Detect maps a GOOS value onto a Platform
func Detect(goos string) Platform {
	switch strings.ToLower(strings.TrimSpace(goos)) {
	case OSLinux:
		return Linux
	case OSWindows:
		return Windows
	default:
		return Unsupported
	}
}

// Current returns the platform of the running host
func Current() Platform {
	return Detect(runtime.GOOS)
}

// Resolve returns the preferred platform when one is configured and the
// detected host platform otherwise. An unknown preference resolves to
// Unsupported rather than falling back to detection.
func Resolve(preferred string) Platform {
	if strings.TrimSpace(preferred) == "" {
		return Current()
	}
	return Detect(preferred)
}

// Info contains detailed platform information
type Info struct {
	OS           string   `json:"os"`
	Architecture string   `json:"architecture"`
	NumCPU       int      `json:"num_cpu"`
	Version      string   `json:"version"`
	Compiler     string   `json:"compiler"`
	Platform     Platform `json:"platform"`
}

// DetectInfo returns detailed information about the running host
func DetectInfo() *Info {
	return &Info{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		Version:      runtime.Version(),
		Compiler:     runtime.Compiler,
		Platform:     Current(),
	}
}
