package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSweeperRunsUntilCancelled(t *testing.T) {
	var mu sync.Mutex
	runs := 0

	sweeper := NewSweeper(10*time.Millisecond, func(context.Context) (int, error) {
		mu.Lock()
		runs++
		mu.Unlock()
		return 0, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}

func TestSweeperRunsDoNotOverlap(t *testing.T) {
	var mu sync.Mutex
	active := 0
	maxActive := 0

	sweeper := NewSweeper(5*time.Millisecond, func(context.Context) (int, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return 0, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	sweeper.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxActive)
}
