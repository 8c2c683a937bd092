package at

import (
	"context"
	"io"
	"slices"
	"sync"
)

// TestTransport is a test helper that simulates a polled transport using
// channels. Read never blocks: it returns 0 when no data is queued, the way
// a serial port with a read timeout behaves, which is what the receiver's
// drain loop expects. Exported for use in tests.
type TestTransport struct {
	mu       sync.Mutex
	readChan chan []byte
	writes   chan []byte
	// pending is the partially consumed chunk; only ever touched by the
	// single goroutine currently holding the receive side.
	pending []byte
	closed  bool
}

// NewTestTransport creates a new test transport.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		readChan: make(chan []byte, 32),
		writes:   make(chan []byte, 32),
	}
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	if len(t.pending) == 0 {
		select {
		case data, ok := <-t.readChan:
			if !ok {
				return 0, io.EOF
			}
			t.pending = data
		default:
			return 0, nil
		}
	}
	n = copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	select {
	case t.writes <- slices.Clone(p):
	default:
	}
	return len(p), nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

// SendData queues data to be read from the transport. This simulates the
// peripheral transmitting to the host.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}

// Writes exposes everything written to the transport, one Write call per
// element, for tests that coordinate replies with observed commands.
func (t *TestTransport) Writes() <-chan []byte {
	return t.writes
}

// TestDialer hands out a fixed Transport, for wiring a TestTransport
// through the config builder.
type TestDialer struct {
	Transport Transport
}

func (d TestDialer) Dial(ctx context.Context) (Transport, error) {
	return d.Transport, nil
}
