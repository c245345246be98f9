package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRWLockMultipleReaders(t *testing.T) {
	l := NewRWLock()
	ctx := context.Background()

	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.RLock(ctx); err != nil {
				t.Errorf("RLock: %v", err)
				return
			}
			defer l.RUnlock()

			n := atomic.AddInt32(&active, 1)
			for {
				max := atomic.LoadInt32(&maxActive)
				if n <= max || atomic.CompareAndSwapInt32(&maxActive, max, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&maxActive) < 2 {
		t.Fatalf("expected concurrent readers, max observed concurrency was %d", maxActive)
	}
}

func TestRWLockWriterExclusivity(t *testing.T) {
	l := NewRWLock()
	ctx := context.Background()

	var active int32
	var sawOverlap bool
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Lock(ctx); err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			defer l.Unlock()

			n := atomic.AddInt32(&active, 1)
			if n != 1 {
				mu.Lock()
				sawOverlap = true
				mu.Unlock()
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	if sawOverlap {
		t.Fatal("two writers held the lock at once")
	}
}

// TestRWLockWriterPreference reproduces spec.md §4.1's writer-preference
// rule: once a writer is waiting, new readers must not be admitted ahead of
// it.
func TestRWLockWriterPreference(t *testing.T) {
	l := NewRWLock()
	ctx := context.Background()

	if err := l.RLock(ctx); err != nil {
		t.Fatalf("initial RLock: %v", err)
	}

	writerStarted := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		close(writerStarted)
		if err := l.Lock(ctx); err != nil {
			t.Errorf("writer Lock: %v", err)
			return
		}
		defer l.Unlock()
		close(writerDone)
	}()
	<-writerStarted
	time.Sleep(10 * time.Millisecond) // give the writer time to start waiting

	lateReaderAdmitted := make(chan struct{})
	go func() {
		if err := l.RLock(ctx); err != nil {
			t.Errorf("late reader RLock: %v", err)
			return
		}
		defer l.RUnlock()
		close(lateReaderAdmitted)
	}()

	select {
	case <-lateReaderAdmitted:
		t.Fatal("a new reader was admitted while a writer was waiting")
	case <-writerDone:
		t.Fatal("writer was admitted while the first reader still held the lock")
	case <-time.After(20 * time.Millisecond):
	}

	l.RUnlock()

	select {
	case <-writerDone:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired the lock after the reader released it")
	}
}

func TestRWLockCancellation(t *testing.T) {
	l := NewRWLock()
	ctx := context.Background()

	if err := l.Lock(ctx); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer l.Unlock()

	cctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.RLock(cctx); err == nil {
		t.Fatal("expected RLock to observe a cancelled context")
	}
	if err := l.Lock(cctx); err == nil {
		t.Fatal("expected Lock to observe a cancelled context")
	}
}
