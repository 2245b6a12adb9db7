package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) log(level, msg string, keysAndValues []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, keysAndValues))
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) { l.log("DEBUG", msg, keysAndValues) }
func (l *testLogger) Info(msg string, keysAndValues ...any)  { l.log("INFO", msg, keysAndValues) }
func (l *testLogger) Warn(msg string, keysAndValues ...any)  { l.log("WARN", msg, keysAndValues) }
func (l *testLogger) Error(msg string, keysAndValues ...any) { l.log("ERROR", msg, keysAndValues) }

func newTestDispatcher(t *testing.T, opts ...Option) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger, opts...)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	d.Start()
	t.Cleanup(d.Stop)

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	called := false
	d.Register("play", func(e Event) (any, error) {
		called = true
		return "result", nil
	})

	result, err := d.Dispatch(Event{Command: "play", Args: []string{"arg1"}})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
	if result != "result" {
		t.Errorf("expected 'result', got %v", result)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: "rewind"})

	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestDispatcher_HandlersRunOnOneGoroutine(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var inFlight, overlaps atomic.Int32
	var order []int
	d.Register("step", func(e Event) (any, error) {
		if inFlight.Add(1) > 1 {
			overlaps.Add(1)
		}
		defer inFlight.Add(-1)
		time.Sleep(time.Millisecond)
		var n int
		fmt.Sscanf(e.Args[0], "%d", &n)
		order = append(order, n)
		return nil, nil
	}, Async(), Blocking())

	for i := 0; i < 20; i++ {
		if _, err := d.Dispatch(Event{Command: "step", Args: []string{fmt.Sprint(i)}}); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
	}
	// A synchronous call queued behind them waits for all of them.
	var got []int
	if err := d.Call(func() { got = append(got, order...) }); err != nil {
		t.Fatalf("call: %v", err)
	}

	if overlaps.Load() != 0 {
		t.Errorf("handlers overlapped %d times", overlaps.Load())
	}
	if len(got) != 20 {
		t.Fatalf("expected 20 handled events, got %d", len(got))
	}
	for i, n := range got {
		if n != i {
			t.Fatalf("events ran out of order: %v", got)
		}
	}
}

func TestDispatcher_AsyncDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t, WithQueueSize(2))

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d.Register("filter", func(e Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Async())

	d.Dispatch(Event{Command: "filter"}) // being processed
	<-started
	d.Dispatch(Event{Command: "filter"}) // queued
	d.Dispatch(Event{Command: "filter"}) // queued

	_, err := d.Dispatch(Event{Command: "filter"})
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	close(block)
}

func TestDispatcher_AsyncBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t, WithQueueSize(1))

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d.Register("filter", func(e Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Async(), Blocking())

	d.Dispatch(Event{Command: "filter"})
	<-started
	d.Dispatch(Event{Command: "filter"})

	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: "filter"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
		// Expected - dispatch is blocking
	}

	close(block)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("dispatch did not unblock")
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("load", func(e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	if _, err := d.Dispatch(Event{Command: "load"}); err == nil {
		t.Error("expected handler error to be returned")
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()

	hasError := false
	for _, msg := range logger.messages {
		if strings.HasPrefix(msg, "ERROR") {
			hasError = true
			break
		}
	}
	if !hasError {
		t.Error("expected error log message")
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("pause", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler("pause") {
		t.Error("expected handler to exist")
	}
	if d.HasHandler("rewind") {
		t.Error("expected handler to not exist")
	}
}

func TestDispatcher_Stopped(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Register("play", func(e Event) (any, error) { return nil, nil })

	d.Stop()
	d.Stop()

	if _, err := d.Dispatch(Event{Command: "play"}); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if err := d.Post(func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped from Post, got %v", err)
	}
	select {
	case <-d.Done():
	default:
		t.Error("Done should be closed")
	}
}

func TestDispatcher_AfterFuncRunsOnLoop(t *testing.T) {
	d, _ := newTestDispatcher(t)

	fired := make(chan struct{})
	if err := d.Call(func() {
		d.AfterFunc(5*time.Millisecond, func() { close(fired) })
	}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestDispatcher_AfterFuncCancel(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var fired atomic.Bool
	var cancel func()
	d.Call(func() {
		cancel = d.AfterFunc(20*time.Millisecond, func() { fired.Store(true) })
	})
	d.Call(func() { cancel() })

	time.Sleep(60 * time.Millisecond)
	d.Call(func() {})

	if fired.Load() {
		t.Error("cancelled timer fired")
	}
}

func TestDispatcher_CancelAfterExpiryBeforeRun(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var fired atomic.Bool
	release := make(chan struct{})
	var cancel func()
	d.Call(func() {
		cancel = d.AfterFunc(time.Millisecond, func() { fired.Store(true) })
	})
	// Hold the loop so the expired timer's task queues up behind us.
	d.Post(func() {
		<-release
		cancel()
	})
	time.Sleep(20 * time.Millisecond)
	close(release)
	d.Call(func() {})

	if fired.Load() {
		t.Error("timer ran after being cancelled on the loop")
	}
}

func TestDispatcher_FrameCadence(t *testing.T) {
	d, _ := newTestDispatcher(t, WithFrameInterval(2*time.Millisecond))

	frames := make(chan time.Time, 3)
	count := 0
	var next func(now time.Time)
	next = func(now time.Time) {
		frames <- now
		count++
		if count < cap(frames) {
			d.Frame(next)
		}
	}
	d.Call(func() { d.Frame(next) })

	var last time.Time
	for i := 0; i < 3; i++ {
		select {
		case now := <-frames:
			if now.Before(last) {
				t.Error("frame times went backwards")
			}
			last = now
		case <-time.After(time.Second):
			t.Fatalf("frame %d did not fire", i)
		}
	}
}
