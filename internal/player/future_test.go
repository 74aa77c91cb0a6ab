package player

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolved(t *testing.T) {
	f := Resolved(nil)
	select {
	case <-f.Done():
	default:
		t.Fatal("Resolved future is not done")
	}
	if err := f.Wait(context.Background()); err != nil {
		t.Errorf("Wait = %v", err)
	}

	want := errors.New("boom")
	if err := Resolved(want).Wait(context.Background()); !errors.Is(err, want) {
		t.Errorf("Wait = %v, want %v", err, want)
	}
}

func TestGo(t *testing.T) {
	release := make(chan struct{})
	f := Go(func() error {
		<-release
		return nil
	})

	if f.Err() != nil {
		t.Error("pending future reported an error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait on pending future = %v, want deadline exceeded", err)
	}

	close(release)
	if err := f.Wait(context.Background()); err != nil {
		t.Errorf("Wait = %v", err)
	}
}
