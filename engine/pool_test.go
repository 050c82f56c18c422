package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(2)

	running := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 2; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			running <- struct{}{}
			<-release
		})
	}

	for i := 0; i < 2; i++ {
		select {
		case <-running:
		case <-time.After(time.Second):
			t.Fatal("expected both submitted tasks to start")
		}
	}
	require.Equal(t, int32(2), p.Active())

	// a third submission must block until a slot frees
	thirdStarted := make(chan struct{})
	go func() {
		p.Submit(func() {
			close(thirdStarted)
		})
	}()

	select {
	case <-thirdStarted:
		t.Fatal("third task should not start while pool is saturated")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	wg.Wait()

	select {
	case <-thirdStarted:
	case <-time.After(time.Second):
		t.Fatal("third task should start once a slot frees")
	}
}

func TestPoolAcquireReleaseTracksActive(t *testing.T) {
	p := NewPool(1)
	p.Acquire()
	require.Equal(t, int32(1), p.Active())
	require.Equal(t, int64(1), p.Started())
	p.Release()
	require.Equal(t, int32(0), p.Active())
}
