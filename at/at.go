// Package at implements a half-duplex AT command/response engine.
//
// A Client drives an AT-command-speaking peripheral (radio or modem module)
// over a byte-stream Transport. Commands are synchronous request/response
// transactions; unsolicited result codes (URCs) emitted by the peripheral at
// any time, including while a command is outstanding, are demultiplexed off
// the same stream and dispatched to handlers registered in the URC table.
package at

import "time"

const (
	// CRLF terminates every outgoing command line.
	CRLF = "\r\n"

	// OK is the default success token expected in command responses.
	OK = "OK"

	// ErrorToken is the generic failure token. It is scanned as a plain
	// substring anywhere in the accumulated response, so a payload that
	// merely contains "ERROR" will match too. Intentional, if fragile:
	// real modules reserve the word for final result codes.
	ErrorToken = "ERROR"
)

// urcEndMarks are the structural terminators that gate URC table lookup.
// Prefix matching happens as soon as one of these (or NUL) arrives; handler
// invocation is still gated on the matched entry's own EndMarks, because
// different notification kinds end with different markers.
const urcEndMarks = ",:\r\n"

const (
	// DefaultTimeout bounds a command transaction when the caller supplies
	// no descriptor.
	DefaultTimeout = 5 * time.Second

	// DefaultBufSize is the response buffer capacity of the default
	// descriptor.
	DefaultBufSize = 64

	// maxLockTime bounds lock acquisition for work transactions and for
	// the receiver's drain cycle.
	maxLockTime = 60 * time.Second

	// idleThreshold is how long the URC accumulator must stay quiet before
	// Idle can report true.
	idleThreshold = 2 * time.Second
)

// Result is the outcome of a command or wait transaction.
type Result int

const (
	// ResultOK means the expected token was observed in the response.
	ResultOK Result = iota
	// ResultError means the generic "ERROR" token was observed first.
	ResultError
	// ResultTimeout means the deadline elapsed with no match, or a lock
	// could not be acquired in time.
	ResultTimeout
	// ResultAbort means the client was suspended mid-wait.
	ResultAbort
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultError:
		return "ERROR"
	case ResultTimeout:
		return "TIMEOUT"
	case ResultAbort:
		return "ABORT"
	default:
		return "UNKNOWN"
	}
}
