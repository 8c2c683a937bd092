package at

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

//go:generate go tool mockgen -package at -destination mock_transport.go -source transport.go Transport,Dialer

// Transport represents an established, bidirectional byte stream to an
// AT-command peripheral.
//
// A Transport is assumed to be already connected and ready for use. Read must
// not block indefinitely when the line is idle: the receiver drains the
// stream in polling cycles and interprets a zero-length read as "no data
// available right now". Serial ports achieve this with a read timeout;
// in-memory fakes simply return 0 when their queue is empty.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to a peripheral.
//
// Dialer abstracts how the connection is created (serial port, TCP-based
// emulator, or test double) and is used during Client construction only.
// Once a Transport is obtained, the Dialer is no longer needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may perform
	// blocking operations and should respect cancellation and deadlines
	// provided by the context.
	Dial(ctx context.Context) (Transport, error)
}

// SerialDialer opens an AT peripheral over a serial port using
// go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, e.g. "/dev/ttyUSB0".
	PortName string
	// Mode holds baud rate and framing. Nil selects the library defaults
	// (9600 8N1).
	Mode *serial.Mode
	// ReadTimeout is applied to the opened port so that Read returns with
	// n == 0 when the line is idle. Zero selects a 10ms default.
	ReadTimeout time.Duration
}

// Dial opens and configures the serial port.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("at: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("at: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		mode = &serial.Mode{}
	}
	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", d.PortName, err)
	}

	readTimeout := d.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Millisecond
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %q: %w", d.PortName, err)
	}

	return port, nil
}
