package stream

import (
	"sync"
	"testing"
	"time"
)

func TestBuffer_PushReceive(t *testing.T) {
	b := NewBuffer[int](10)

	for i := 1; i <= 5; i++ {
		if !b.Push(i) {
			t.Fatalf("Push(%d) = false, want true", i)
		}
	}

	for i := 1; i <= 5; i++ {
		got, ok := b.Receive()
		if !ok {
			t.Fatalf("Receive() closed early at item %d", i)
		}
		if got != i {
			t.Errorf("Receive() = %d, want %d", got, i)
		}
	}

	if _, ok := b.TryReceive(); ok {
		t.Error("TryReceive() on empty buffer = true, want false")
	}
}

func TestBuffer_DropOldest(t *testing.T) {
	b := NewBuffer[int](100)

	for i := 1; i <= 105; i++ {
		b.Push(i)
	}

	if b.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", b.Len())
	}
	if b.Dropped() != 5 {
		t.Errorf("Dropped() = %d, want 5", b.Dropped())
	}

	// Items 1..5 were evicted; 6..105 remain in order.
	for want := 6; want <= 105; want++ {
		got, ok := b.TryReceive()
		if !ok {
			t.Fatalf("TryReceive() empty at item %d", want)
		}
		if got != want {
			t.Fatalf("TryReceive() = %d, want %d", got, want)
		}
	}
}

func TestBuffer_CloseIdempotent(t *testing.T) {
	b := NewBuffer[string](4)
	b.Push("a")

	b.Close()
	b.Close() // must not panic

	if b.Push("b") {
		t.Error("Push after Close = true, want false")
	}

	// Remaining items drain, then closed signal.
	got, ok := b.Receive()
	if !ok || got != "a" {
		t.Errorf("Receive() = (%q, %v), want (\"a\", true)", got, ok)
	}
	if _, ok := b.Receive(); ok {
		t.Error("Receive() on drained closed buffer = true, want false")
	}
}

func TestBuffer_ReceiveBlocksUntilPush(t *testing.T) {
	b := NewBuffer[int](4)

	done := make(chan int, 1)
	go func() {
		v, _ := b.Receive()
		done <- v
	}()

	// Give the receiver a moment to block.
	time.Sleep(20 * time.Millisecond)
	b.Push(42)

	select {
	case v := <-done:
		if v != 42 {
			t.Errorf("Receive() = %d, want 42", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive() did not wake after Push")
	}
}

func TestBuffer_CloseWakesBlockedReceivers(t *testing.T) {
	b := NewBuffer[int](4)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Receive()
		}()
	}

	time.Sleep(20 * time.Millisecond)
	b.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("blocked receivers not woken by Close")
	}
}

func TestBuffer_ConcurrentProducers(t *testing.T) {
	b := NewBuffer[int](1000)

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Push(i)
			}
		}()
	}
	wg.Wait()

	if b.Len() != 800 {
		t.Errorf("Len() = %d, want 800", b.Len())
	}
}

func TestNewBuffer_CapacityFallback(t *testing.T) {
	b := NewBuffer[int](0)
	if b.Cap() != DefaultCapacity {
		t.Errorf("Cap() = %d, want %d", b.Cap(), DefaultCapacity)
	}
}
