package engine

import "context"

// semaphore is a counting semaphore built on a buffered channel, the usual
// Go stand-in for the classic binary/counting semaphore this algorithm is
// specified against.
type semaphore struct {
	slots chan struct{}
}

func newSemaphore(n int) *semaphore {
	s := &semaphore{slots: make(chan struct{}, n)}
	for i := 0; i < n; i++ {
		s.slots <- struct{}{}
	}
	return s
}

func (s *semaphore) acquire(ctx context.Context) error {
	select {
	case <-s.slots:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *semaphore) release() {
	s.slots <- struct{}{}
}

// lightswitch raises a gate semaphore on the first "enter" and lowers it
// on the last matching "exit", per Downey's "Little Book of Semaphores"
// §3.6. It is the building block the RWLock uses twice: once for readers
// guarding no_writers, once for writers guarding no_readers.
type lightswitch struct {
	mu      chan struct{} // binary mutex protecting counter
	counter int
	gate    *semaphore
}

func newLightswitch(gate *semaphore) *lightswitch {
	ls := &lightswitch{mu: make(chan struct{}, 1), gate: gate}
	ls.mu <- struct{}{}
	return ls
}

func (ls *lightswitch) enter(ctx context.Context) error {
	select {
	case <-ls.mu:
	case <-ctx.Done():
		return ctx.Err()
	}
	ls.counter++
	if ls.counter == 1 {
		if err := ls.gate.acquire(ctx); err != nil {
			ls.counter--
			ls.mu <- struct{}{}
			return err
		}
	}
	ls.mu <- struct{}{}
	return nil
}

func (ls *lightswitch) exit() {
	<-ls.mu
	ls.counter--
	if ls.counter == 0 {
		ls.gate.release()
	}
	ls.mu <- struct{}{}
}

// RWLock is the writer-preferring reader/writer mutex from spec.md §4.1:
// any number of readers concurrently, or one writer exclusively; once a
// writer is waiting, new readers must wait behind it. Reentrant
// acquisition is not supported — a goroutine must not call RLock or
// Lock while it already holds either.
type RWLock struct {
	noReaders   *semaphore
	noWriters   *semaphore
	readSwitch  *lightswitch
	writeSwitch *lightswitch
}

func NewRWLock() *RWLock {
	l := &RWLock{
		noReaders: newSemaphore(1),
		noWriters: newSemaphore(1),
	}
	l.readSwitch = newLightswitch(l.noWriters)
	l.writeSwitch = newLightswitch(l.noReaders)
	return l
}

// RLock blocks until a read slot is available, per the acquire sequence in
// spec.md §4.1: take no_readers (waiting while a writer holds the gate),
// enter the read lightswitch, release no_readers.
func (l *RWLock) RLock(ctx context.Context) error {
	if err := l.noReaders.acquire(ctx); err != nil {
		return err
	}
	if err := l.readSwitch.enter(ctx); err != nil {
		l.noReaders.release()
		return err
	}
	l.noReaders.release()
	return nil
}

func (l *RWLock) RUnlock() {
	l.readSwitch.exit()
}

// Lock blocks until exclusive write access is available: enter the write
// lightswitch (the first waiting writer blocks new readers), then acquire
// no_writers exclusively.
func (l *RWLock) Lock(ctx context.Context) error {
	if err := l.writeSwitch.enter(ctx); err != nil {
		return err
	}
	if err := l.noWriters.acquire(ctx); err != nil {
		l.writeSwitch.exit()
		return err
	}
	return nil
}

func (l *RWLock) Unlock() {
	l.noWriters.release()
	l.writeSwitch.exit()
}
