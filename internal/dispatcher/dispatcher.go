// Package dispatcher runs every state mutation on one event-loop goroutine.
//
// UI commands, timer expirations, animation frames and completed background
// work are all posted to the loop and executed in arrival order, so the
// state they touch never needs a lock.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrStopped is returned for work posted after Stop.
	ErrStopped = errors.New("dispatcher stopped")
	// ErrUnknownCommand is returned when no handler is registered for a command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrQueueFull is returned by non-blocking async handlers when the loop is saturated.
	ErrQueueFull = errors.New("queue full")
)

// DefaultFrameInterval approximates a 60 Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// Event represents an incoming UI command.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event on the loop and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// HandlerOption configures handler registration.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	async    bool
	blocking bool
	logged   bool
}

// Async makes Dispatch return "queued" without waiting for the handler.
func Async() HandlerOption {
	return func(c *handlerConfig) {
		c.async = true
	}
}

// Blocking makes an async handler wait for queue space instead of dropping.
func Blocking() HandlerOption {
	return func(c *handlerConfig) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() HandlerOption {
	return func(c *handlerConfig) {
		c.logged = true
	}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithQueueSize sets how many tasks may wait for the loop.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueCap = n
		}
	}
}

// WithFrameInterval sets the animation frame cadence.
func WithFrameInterval(interval time.Duration) Option {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.frameInterval = interval
		}
	}
}

type registration struct {
	handler HandlerFunc
	cfg     handlerConfig
}

// Dispatcher routes events to registered handlers on a single goroutine.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]registration
	logger   Logger

	queueCap      int
	frameInterval time.Duration

	tasks    chan func()
	done     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	failed    metric.Int64Counter
	dropped   metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers:      make(map[string]registration),
		logger:        logger,
		queueCap:      1024,
		frameInterval: DefaultFrameInterval,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.tasks = make(chan func(), d.queueCap)

	// Get meter from global OTel provider (returns no-op if not configured)
	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of tasks waiting for the loop"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(d.queueSize, int64(len(d.tasks)))
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.events.failed",
		metric.WithDescription("Total events whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Start launches the loop goroutine. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	if !d.started.CompareAndSwap(false, true) {
		return
	}
	go d.loop()
}

// Stop ends the loop. Queued tasks that have not run are discarded.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
	})
}

// Done is closed once Stop has been called.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// QueueLen returns the number of tasks waiting for the loop.
func (d *Dispatcher) QueueLen() int {
	return len(d.tasks)
}

func (d *Dispatcher) loop() {
	for {
		select {
		case <-d.done:
			return
		case fn := <-d.tasks:
			select {
			case <-d.done:
				return
			default:
			}
			fn()
		}
	}
}

// Post queues fn to run on the loop, waiting for queue space if needed.
// It must not be called from the loop while the queue may be full.
func (d *Dispatcher) Post(fn func()) error {
	select {
	case <-d.done:
		return ErrStopped
	default:
	}
	select {
	case <-d.done:
		return ErrStopped
	case d.tasks <- fn:
		return nil
	}
}

// TryPost queues fn without waiting. It returns ErrQueueFull when saturated.
func (d *Dispatcher) TryPost(fn func()) error {
	select {
	case <-d.done:
		return ErrStopped
	default:
	}
	select {
	case d.tasks <- fn:
		return nil
	default:
		return ErrQueueFull
	}
}

// Call runs fn on the loop and waits for it to finish. It must not be called
// from the loop itself.
func (d *Dispatcher) Call(fn func()) error {
	finished := make(chan struct{})
	if err := d.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-d.done:
		return ErrStopped
	}
}

// AfterFunc runs fn on the loop once d has elapsed. The returned cancel must
// be called on the loop; after it returns fn will not run.
func (d *Dispatcher) AfterFunc(delay time.Duration, fn func()) (cancel func()) {
	var cancelled atomic.Bool
	t := time.AfterFunc(delay, func() {
		_ = d.Post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

// Frame runs fn on the loop at the next frame tick with the tick time.
// The returned cancel must be called on the loop.
func (d *Dispatcher) Frame(fn func(now time.Time)) (cancel func()) {
	return d.AfterFunc(d.frameInterval, func() {
		fn(time.Now())
	})
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...HandlerOption) {
	var cfg handlerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	handler := h
	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	d.mu.Lock()
	d.handlers[command] = registration{handler: handler, cfg: cfg}
	d.mu.Unlock()
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

// Dispatch runs the handler for e on the loop. Synchronous handlers are
// awaited; async handlers return "queued" immediately.
// It must not be called from the loop itself.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	reg, ok := d.handlers[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	cmdAttr := metric.WithAttributes(attribute.String("command", e.Command))
	run := func() (any, error) {
		result, err := reg.handler(e)
		d.processed.Add(context.Background(), 1, cmdAttr)
		if err != nil {
			d.failed.Add(context.Background(), 1, cmdAttr)
		}
		return result, err
	}

	if reg.cfg.async {
		task := func() { _, _ = run() }
		var err error
		if reg.cfg.blocking {
			err = d.Post(task)
		} else {
			err = d.TryPost(task)
		}
		if errors.Is(err, ErrQueueFull) {
			d.dropped.Add(context.Background(), 1, cmdAttr)
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, e.Command)
		}
		if err != nil {
			return nil, err
		}
		return "queued", nil
	}

	var (
		result any
		err    error
	)
	if callErr := d.Call(func() { result, err = run() }); callErr != nil {
		return nil, callErr
	}
	return result, err
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args))

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
