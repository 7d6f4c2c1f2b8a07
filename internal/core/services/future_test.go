package services

import (
	"context"
	"errors"
	"testing"
)

func TestFuture(t *testing.T) {
	release := make(chan struct{})
	f := Go(context.Background(), func(context.Context) (int, error) {
		<-release
		return 7, nil
	})

	select {
	case <-f.Done():
		t.Fatalf("future done before its function returned")
	default:
	}
	close(release)

	v, err := f.Wait(context.Background())
	if err != nil || v != 7 {
		t.Errorf("Wait() = %d, %v", v, err)
	}
}

func TestFuture_WaitCancelled(t *testing.T) {
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		select {}
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestCompleted(t *testing.T) {
	boom := errors.New("boom")
	_, err := Completed(0, boom).Wait(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Wait() error = %v", err)
	}
}
