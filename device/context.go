package device

import (
	"sync"
	"time"
)

// Context is an execution context bound to one Device. It owns the memory
// pool and the streams created against it. A Context must be destroyed when
// no longer needed; destroying it drains and closes all streams.
type Context struct {
	device        *Device
	memory        *MemoryPool
	mu            sync.Mutex
	streams       []*Stream
	defaultStream *Stream
}

// NewContext creates a context for the given device. Passing nil selects the
// default host-derived device profile.
func NewContext(dev *Device) *Context {
	if dev == nil {
		dev = Default()
	}
	ctx := &Context{
		device: dev,
		memory: NewMemoryPool(),
	}
	ctx.defaultStream = ctx.NewStream()
	return ctx
}

// Device returns the device this context executes on.
func (ctx *Context) Device() *Device {
	return ctx.device
}

// Stream returns the context's default stream.
func (ctx *Context) Stream() *Stream {
	return ctx.defaultStream
}

// NewStream creates an additional execution stream. Work submitted to one
// stream executes in submission order; separate streams may overlap.
func (ctx *Context) NewStream() *Stream {
	s := &Stream{
		tasks: make(chan func(), 1024),
		done:  make(chan struct{}),
	}
	go s.worker()

	ctx.mu.Lock()
	s.id = len(ctx.streams) + 1
	ctx.streams = append(ctx.streams, s)
	ctx.mu.Unlock()
	return s
}

// Synchronize blocks until every stream owned by the context is idle.
func (ctx *Context) Synchronize() error {
	ctx.mu.Lock()
	streams := append([]*Stream(nil), ctx.streams...)
	ctx.mu.Unlock()
	for _, s := range streams {
		s.Synchronize()
	}
	return nil
}

// Destroy synchronizes and shuts down all streams. The context must not be
// used afterwards.
func (ctx *Context) Destroy() error {
	ctx.mu.Lock()
	streams := ctx.streams
	ctx.streams = nil
	ctx.mu.Unlock()
	for _, s := range streams {
		s.close()
	}
	return nil
}

// Stream is an ordered sequence of asynchronous operations. A dedicated
// worker goroutine executes submitted tasks one at a time in FIFO order,
// which is the same ordering guarantee a hardware queue provides.
type Stream struct {
	id     int
	tasks  chan func()
	done   chan struct{}
	wg     sync.WaitGroup
	closed sync.Once
}

func (s *Stream) worker() {
	for task := range s.tasks {
		task()
		s.wg.Done()
	}
	close(s.done)
}

// Submit enqueues a task on the stream.
func (s *Stream) Submit(task func()) {
	s.wg.Add(1)
	s.tasks <- task
}

// Synchronize blocks until all previously submitted tasks have completed.
func (s *Stream) Synchronize() {
	s.wg.Wait()
}

func (s *Stream) close() {
	s.closed.Do(func() {
		s.wg.Wait()
		close(s.tasks)
		<-s.done
	})
}

// Event marks a point in a stream's execution. Recording submits a marker
// task; synchronizing waits for the marker to execute. Elapsed time between
// two completed events gives device-side duration, the way hip events do.
// Events are single-use: create, record, synchronize, destroy.
type Event struct {
	mu       sync.Mutex
	recorded bool
	when     time.Time
	ready    chan struct{}
}

// NewEvent creates an unrecorded event.
func NewEvent() *Event {
	return &Event{ready: make(chan struct{})}
}

// Record submits the event's marker to the stream. Recording the same event
// twice is an error.
func (e *Event) Record(s *Stream) error {
	e.mu.Lock()
	if e.recorded {
		e.mu.Unlock()
		return NewEventError("Record", "event already recorded", nil)
	}
	e.recorded = true
	e.mu.Unlock()

	s.Submit(func() {
		e.mu.Lock()
		e.when = time.Now()
		e.mu.Unlock()
		close(e.ready)
	})
	return nil
}

// Synchronize blocks until the event's marker has executed on its stream.
func (e *Event) Synchronize() error {
	e.mu.Lock()
	recorded := e.recorded
	e.mu.Unlock()
	if !recorded {
		return NewEventError("Synchronize", "event was never recorded", nil)
	}
	<-e.ready
	return nil
}

// Completed reports whether the marker has executed.
func (e *Event) Completed() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

// Destroy releases the event. Present for symmetry with real runtimes; the
// garbage collector does the actual work.
func (e *Event) Destroy() error {
	return nil
}

// Elapsed returns the milliseconds between two completed events.
func Elapsed(start, stop *Event) (float64, error) {
	if !start.Completed() || !stop.Completed() {
		return 0, NewEventError("Elapsed", "events not complete", nil)
	}
	start.mu.Lock()
	t0 := start.when
	start.mu.Unlock()
	stop.mu.Lock()
	t1 := stop.when
	stop.mu.Unlock()
	return float64(t1.Sub(t0)) / float64(time.Millisecond), nil
}
