package at

import (
	"strings"
	"time"
)

// Response is the per-transaction descriptor of a command's expected reply.
// It is created by the caller, installed into the Client for the duration of
// one Do call, and cleared by the matcher on completion. At most one
// Response is installed at any instant.
type Response struct {
	// Expect is the substring that marks success, e.g. "OK" or ">".
	Expect string
	// Buf accumulates the raw reply. When the accumulation would exceed
	// its capacity the count resets and matching resumes from empty.
	Buf []byte
	// Timeout bounds the whole transaction, including the send lock wait.
	Timeout time.Duration

	// n is the accumulated length, recorded when the descriptor is
	// uninstalled.
	n int
}

// Bytes returns the accumulated reply. Valid after Do returns.
func (r *Response) Bytes() []byte {
	return r.Buf[:r.n]
}

func (r *Response) String() string {
	return string(r.Bytes())
}

// respProcess is the response matcher. It runs on the receive path for each
// chunk while a descriptor is installed, and with nil data to evaluate the
// deadline and suspend flag when the line is silent. The first terminal
// classification wins; the descriptor is uninstalled before the completion
// signal is raised.
func (c *Client) respProcess(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.resp
	if r == nil {
		return
	}

	if len(data) > 0 {
		if c.rcvCnt+len(data) >= len(r.Buf) {
			c.debugf("receive overflow: %s", r.Buf[:c.rcvCnt])
			c.rcvCnt = 0
		}
		c.rcvCnt += copy(r.Buf[c.rcvCnt:], data)

		text := string(r.Buf[:c.rcvCnt])
		if strings.Contains(text, r.Expect) {
			c.complete(r, ResultOK)
			return
		}
		if strings.Contains(text, ErrorToken) {
			c.complete(r, ResultError)
			return
		}
	}

	if time.Since(c.respTimer) > r.Timeout {
		c.complete(r, ResultTimeout)
	} else if c.suspend.Load() {
		c.complete(r, ResultAbort)
	}
}

// complete uninstalls the descriptor and raises the completion signal.
// Caller holds mu. The send is non-blocking: if the waiting caller already
// gave up, the stale value is drained before the next install.
func (c *Client) complete(r *Response, res Result) {
	r.n = c.rcvCnt
	c.resp = nil
	select {
	case c.done <- res:
	default:
	}
}
