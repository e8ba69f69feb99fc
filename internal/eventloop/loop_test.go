package eventloop

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPostRunsInOrder(t *testing.T) {
	l := New(nil)
	defer l.Close()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	l.Call(func() {})

	require.Len(t, got, 100)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestConcurrentPostersAreSerialised(t *testing.T) {
	l := New(nil)
	defer l.Close()

	counter := 0
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				l.Post(func() { counter++ })
			}
		}()
	}
	wg.Wait()

	var final int
	l.Call(func() { final = counter })
	require.Equal(t, 2000, final)
}

func TestPanicDoesNotKillLoop(t *testing.T) {
	l := New(nil)
	defer l.Close()

	l.Post(func() { panic("boom") })
	ran := false
	require.True(t, l.Call(func() { ran = true }))
	require.True(t, ran)
}

func TestCloseRejectsFurtherWork(t *testing.T) {
	l := New(nil)
	l.Close()
	l.Close()

	require.False(t, l.Post(func() { t.Fatal("ran after close") }))
	require.False(t, l.Call(func() { t.Fatal("ran after close") }))

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop goroutine did not exit")
	}
}

func TestCloseWaitsForRunningTask(t *testing.T) {
	l := New(nil)
	started := make(chan struct{})
	release := make(chan struct{})
	finished := false
	l.Post(func() {
		close(started)
		<-release
		finished = true
	})
	<-started

	closed := make(chan struct{})
	go func() {
		l.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a task was running")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-closed
	require.True(t, finished)
}
