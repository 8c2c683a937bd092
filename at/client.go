package at

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Client is the per-link controller of the AT engine. It owns the shared
// accumulation state, the locks serializing access to the stream, and the
// completion signal tying the receiver to command callers.
//
// One background receiver (Run, or repeated Process calls) drains the
// transport; any number of caller goroutines may issue commands with Do or
// take over the stream with DoWork.
type Client struct {
	transport Transport
	config    Config

	// sendLock serializes command/work issuance; recvLock guards the
	// receive side of the stream. When both are needed, sendLock is
	// always taken first.
	sendLock sem
	recvLock sem
	// done carries one transaction outcome from the matcher to the
	// waiting command caller.
	done chan Result

	// mu guards the installed descriptor and its accumulation counter.
	mu        sync.Mutex
	resp      *Response
	rcvCnt    int
	respTimer time.Time

	// URC accumulation state, touched only while recvLock is held.
	urcBuf  []byte
	urcItem *URC

	// Status-only fields, read without the locks.
	urcCnt   atomic.Int32
	urcTimer atomic.Int64 // unix nanos of the last accumulated URC byte
	busy     atomic.Bool
	suspend  atomic.Bool

	running atomic.Bool
	closed  bool
}

// sem is a binary semaphore with bounded acquisition, modeled as a
// one-token channel.
type sem chan struct{}

func newSem() sem {
	s := make(sem, 1)
	s <- struct{}{}
	return s
}

// acquire takes the token, waiting at most d. It reports false on timeout.
func (s sem) acquire(d time.Duration) bool {
	select {
	case <-s:
		return true
	default:
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s:
		return true
	case <-t.C:
		return false
	}
}

func (s sem) release() {
	s <- struct{}{}
}

// New dials the configured transport and returns a ready Client. The
// receiver loop is not started; call Run (typically in a goroutine) or
// drive Process from your own scheduler.
func New(ctx context.Context, config Config) (*Client, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}

	return &Client{
		transport: transport,
		config:    config,
		sendLock:  newSem(),
		recvLock:  newSem(),
		done:      make(chan Result, 1),
		urcBuf:    make([]byte, config.URCBufSize),
	}, nil
}

// Run is the background receiver loop. It repeatedly drains the transport
// through the byte dispatcher, pausing the configured poll interval between
// cycles, until ctx is cancelled or the transport fails. A clean transport
// end is reported as io.EOF.
func (c *Client) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer c.running.Store(false)

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := c.Process(); err != nil {
			return err
		}
	}
}

// Process runs one drain cycle: it acquires the receive lock, reads every
// currently available byte and feeds it to both the URC dispatcher and the
// response matcher, then finishes with an empty dispatch so deadline and
// stale-accumulation checks run even when the line is silent.
//
// Bytes are read one at a time: a URC handler may pull payload bytes from
// the transport mid-stream, and a larger read here would swallow them.
func (c *Client) Process() error {
	if !c.recvLock.acquire(maxLockTime) {
		return nil
	}
	defer c.recvLock.release()

	var b [1]byte
	for {
		n, err := c.transport.Read(b[:])
		if n > 0 {
			c.urcProcess(b[:n])
			c.respProcess(b[:n])
			continue
		}
		c.urcProcess(nil)
		c.respProcess(nil)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("transport read: %w", err)
		}
		return nil
	}
}

// Suspend requests abortion of any in-flight response wait. The matcher
// reports ResultAbort on its next evaluation; there is no immediate
// preemption of a blocked caller.
func (c *Client) Suspend() {
	c.suspend.Store(true)
}

// Resume clears a previous Suspend.
func (c *Client) Resume() {
	c.suspend.Store(false)
}

// Idle reports whether the link is quiet: no command or work transaction is
// active and no URC byte has been accumulated within the last 2 seconds.
// URC handlers themselves are not consulted; the timer is a best-effort
// status field.
func (c *Client) Idle() bool {
	quiet := time.Now().UnixNano()-c.urcTimer.Load() > int64(idleThreshold)
	return !c.busy.Load() && quiet
}

// Close shuts down the client and closes the transport. After Close the
// client cannot be reused.
func (c *Client) Close() error {
	if c.closed {
		return ErrAlreadyClosed
	}
	c.closed = true
	if c.transport != nil {
		return c.transport.Close()
	}
	return nil
}

func (c *Client) debugf(format string, args ...any) {
	c.config.Debug(format, args...)
}

// putLine writes s terminated by CRLF and mirrors it to the debug trace.
// Write failures are traced, not surfaced: the transaction runs on to its
// own timeout, matching the engine's fire-and-forget send path.
func (c *Client) putLine(s string) {
	if _, err := c.transport.Write([]byte(s + CRLF)); err != nil {
		c.debugf("write %q: %v", s, err)
		return
	}
	c.debugf("-> %s", s)
}
