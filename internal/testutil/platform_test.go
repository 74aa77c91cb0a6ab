package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/cboxdk/audioplay/internal/platform"
)

func TestRunPlatformTestsForcesEachPlatform(t *testing.T) {
	var seen []platform.Platform

	RunPlatformTests(t, PlatformTestSuite{
		Tests: []PlatformTest{
			{
				Name: "resolve",
				TestFunc: func(t *testing.T, p platform.Platform) {
					seen = append(seen, p)
					cfg := NewTestConfig(t, p)
					if got := platform.Resolve(cfg.Platform.Preferred); got != p {
						t.Errorf("Resolve(%q) = %s, want %s", cfg.Platform.Preferred, got, p)
					}
				},
			},
		},
	})

	if len(seen) != len(AllPlatforms) {
		t.Errorf("ran for %d platforms, want %d", len(seen), len(AllPlatforms))
	}
}

func TestRecordingSender(t *testing.T) {
	s := &RecordingSender{Code: 263}

	if code := s.SendString("Play a.wav", 16); code != 263 {
		t.Errorf("code = %d, want 263", code)
	}
	if got := s.Commands(); len(got) != 1 || got[0] != "Play a.wav" {
		t.Errorf("commands = %v", got)
	}
	if got := s.BufferSizes(); len(got) != 1 || got[0] != 16 {
		t.Errorf("buffer sizes = %v", got)
	}
}

func TestRecordingRunner(t *testing.T) {
	waitErr := errors.New("exit status 1")
	r := &RecordingRunner{WaitErr: waitErr}

	proc, err := r.Start(context.Background(), "/bin/bash", "mpg123 -q 'a.mp3'")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := proc.Wait(); !errors.Is(err, waitErr) {
		t.Errorf("Wait = %v, want %v", err, waitErr)
	}
	if got := r.Shells(); len(got) != 1 || got[0] != "/bin/bash" {
		t.Errorf("shells = %v", got)
	}
}
