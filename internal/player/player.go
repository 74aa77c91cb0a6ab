// Package player implements the audio player products and the creators that
// build them. Each supported platform has one creator and one player; the
// creator is the only place a concrete player type is named.
package player

import (
	"context"
	"io"
	"os"

	"github.com/cboxdk/audioplay/internal/platform"
	"go.uber.org/zap"
)

// Player plays a single audio file
type Player interface {
	// Play starts playback of fileName. The path is passed through to the
	// platform backend without validation. The returned future always
	// resolves; print-only backends resolve before Play returns.
	Play(ctx context.Context, fileName string) *Future
}

// Creator builds the Player for one platform
type Creator interface {
	// CreatePlayer returns a new player. It cannot fail.
	CreatePlayer() Player

	// Platform returns the platform whose player this creator builds
	Platform() platform.Platform
}

// Options carries the collaborators and settings shared by all creators
type Options struct {
	Output  io.Writer
	Logger  *zap.Logger
	Linux   LinuxOptions
	Windows WindowsOptions
}

func (o Options) output() io.Writer {
	if o.Output == nil {
		return os.Stdout
	}
	return o.Output
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
