package debounce

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLatestSubmissionWins(t *testing.T) {
	var runs atomic.Int32
	results := make(chan int, 10)

	slot := New(30*time.Millisecond,
		func(_ context.Context, n int) int {
			runs.Add(1)
			return n * 10
		},
		func(r int) { results <- r },
	)
	defer slot.Close()

	for i := 1; i <= 5; i++ {
		slot.Submit(i)
	}

	select {
	case got := <-results:
		if got != 50 {
			t.Fatalf("got %d, want 50", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}

	// Nothing else trickles in.
	select {
	case got := <-results:
		t.Fatalf("unexpected extra result %d", got)
	case <-time.After(100 * time.Millisecond):
	}
	if n := runs.Load(); n != 1 {
		t.Errorf("run called %d times, want 1", n)
	}
}

func TestInFlightRunIsSuperseded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	results := make(chan string, 10)

	var once sync.Once
	slot := New(0,
		func(ctx context.Context, s string) string {
			if s == "slow" {
				once.Do(func() { close(started) })
				select {
				case <-ctx.Done():
				case <-release:
				}
			}
			return s
		},
		func(r string) { results <- r },
	)
	defer slot.Close()

	slot.Submit("slow")
	<-started
	slot.Submit("fast")
	close(release)

	select {
	case got := <-results:
		if got != "fast" {
			t.Fatalf("got %q, want fast", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}

	select {
	case got := <-results:
		t.Fatalf("superseded result %q was delivered", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelDropsPending(t *testing.T) {
	var runs atomic.Int32
	slot := New(20*time.Millisecond,
		func(context.Context, int) int { runs.Add(1); return 0 },
		func(int) {},
	)
	defer slot.Close()

	slot.Submit(1)
	slot.Cancel()
	time.Sleep(80 * time.Millisecond)
	if n := runs.Load(); n != 0 {
		t.Errorf("run called %d times after Cancel", n)
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	var delivered atomic.Int32
	slot := New(10*time.Millisecond,
		func(_ context.Context, n int) int { return n },
		func(int) { delivered.Add(1) },
	)

	slot.Submit(1)
	slot.Close()
	slot.Submit(2)
	time.Sleep(60 * time.Millisecond)

	if n := delivered.Load(); n != 0 {
		t.Errorf("delivered %d results after Close", n)
	}
}

func TestSequentialSubmissionsEachDeliver(t *testing.T) {
	results := make(chan int, 10)
	slot := New(0,
		func(_ context.Context, n int) int { return n },
		func(r int) { results <- r },
	)
	defer slot.Close()

	for i := range 3 {
		slot.Submit(i)
		select {
		case got := <-results:
			if got != i {
				t.Fatalf("got %d, want %d", got, i)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("submission %d not delivered", i)
		}
	}
}
