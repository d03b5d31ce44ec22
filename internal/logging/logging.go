// Package logging provides an asynchronous structured logger: callers
// enqueue entries onto a lock-free ring and a dedicated drain goroutine
// forwards them to the luxfi/log backend. Log calls never block; when
// the ring is full the entry is dropped and counted, keeping the hot
// path free of I/O.
package logging

import (
	"sync/atomic"
	"time"

	"github.com/luxfi/log"

	"github.com/wojciech-wais/low-latency-trading-system/internal/ring"
)

// Level mirrors the subset of backend levels the simulator emits.
type Level uint8

const (
	Debug Level = iota
	Info
	Warn
	Error
)

// Sink is the backend surface the drain goroutine writes to. luxfi/log
// Logger satisfies it; tests substitute a recorder.
type Sink interface {
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
}

// maxFields bounds the key-value pairs carried per entry, keeping the
// entry a fixed-size value for the ring.
const maxFields = 8

// idleSleep is how long the drain goroutine sleeps when its queue is
// empty. The logger is not latency-critical, so it must not hot-spin.
const idleSleep = 100 * time.Microsecond

type entry struct {
	level  Level
	msg    string
	fields [maxFields]interface{}
	n      int
}

// Logger is the async front end. Exactly one drain goroutine consumes
// the ring; Log may be called from a single producer goroutine per
// Logger (the SPSC contract). Components on different goroutines each
// hold their own Logger over a shared Sink.
type Logger struct {
	sink    Sink
	queue   *ring.SPSC[entry]
	running atomic.Bool
	done    chan struct{}
	dropped atomic.Uint64
	enabled bool
}

// NewBackend constructs the process-wide luxfi/log backend at the given
// level ("debug", "info", "warn", "error").
func NewBackend(level string) log.Logger {
	lvl, _ := log.ToLevel(level)
	return log.NewTestLogger(lvl)
}

// New constructs a Logger over sink with the given ring capacity (a
// power of two) and starts its drain goroutine. A disabled logger
// accepts and discards everything without queueing.
func New(sink Sink, queueCapacity int, enabled bool) *Logger {
	l := &Logger{
		sink:    sink,
		queue:   ring.New[entry](queueCapacity),
		done:    make(chan struct{}),
		enabled: enabled,
	}
	l.running.Store(true)
	go l.drain()
	return l
}

// Log enqueues one entry. Never blocks: a full queue drops the entry
// and bumps the dropped counter.
func (l *Logger) Log(level Level, msg string, keyvals ...interface{}) {
	if !l.enabled {
		return
	}
	e := entry{level: level, msg: msg}
	n := len(keyvals)
	if n > maxFields {
		n = maxFields
	}
	copy(e.fields[:], keyvals[:n])
	e.n = n
	if !l.queue.TryPush(e) {
		l.dropped.Add(1)
	}
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.Log(Debug, msg, keyvals...) }
func (l *Logger) Info(msg string, keyvals ...interface{})  { l.Log(Info, msg, keyvals...) }
func (l *Logger) Warn(msg string, keyvals ...interface{})  { l.Log(Warn, msg, keyvals...) }
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.Log(Error, msg, keyvals...) }

// Dropped reports how many entries were discarded on queue overflow.
func (l *Logger) Dropped() uint64 { return l.dropped.Load() }

// Stop signals the drain goroutine, waits for it to flush the queue,
// and returns. Safe to call once.
func (l *Logger) Stop() {
	l.running.Store(false)
	<-l.done
}

func (l *Logger) drain() {
	for l.running.Load() {
		e, ok := l.queue.TryPop()
		if !ok {
			time.Sleep(idleSleep)
			continue
		}
		l.emit(e)
	}
	for {
		e, ok := l.queue.TryPop()
		if !ok {
			break
		}
		l.emit(e)
	}
	close(l.done)
}

func (l *Logger) emit(e entry) {
	switch e.level {
	case Debug:
		l.sink.Debug(e.msg, e.fields[:e.n]...)
	case Info:
		l.sink.Info(e.msg, e.fields[:e.n]...)
	case Warn:
		l.sink.Warn(e.msg, e.fields[:e.n]...)
	default:
		l.sink.Error(e.msg, e.fields[:e.n]...)
	}
}
