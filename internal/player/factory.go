package player

import (
	"errors"

	"github.com/cboxdk/audioplay/internal/platform"
)

// ErrUnsupportedPlatform is returned when no creator exists for the host
var ErrUnsupportedPlatform = errors.New("only Linux and Windows operating systems are supported")

// UnsupportedPlatformError reports the platform that had no creator
type UnsupportedPlatformError struct {
	Platform platform.Platform
	OS       string
}

func (e *UnsupportedPlatformError) Error() string {
	return "unsupported platform: " + e.OS
}

// Unwrap returns ErrUnsupportedPlatform
func (e *UnsupportedPlatformError) Unwrap() error {
	return ErrUnsupportedPlatform
}

// NewCreator selects the creator for p
func NewCreator(p platform.Platform, opts Options) (Creator, error) {
	switch p {
	case platform.Windows:
		return NewWindowsCreator(opts), nil
	case platform.Linux:
		return NewLinuxCreator(opts), nil
	default:
		return nil, &UnsupportedPlatformError{
			Platform: p,
			OS:       platform.DetectInfo().OS,
		}
	}
}
