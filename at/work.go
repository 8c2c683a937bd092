package at

import (
	"fmt"
	"strings"
	"time"
)

// Work is a caller-supplied multi-step exchange routine. Its integer result
// is returned verbatim by DoWork; parameters are captured by the closure.
type Work func(*WorkContext) int

// WorkContext gives a work routine private read/write/wait access to the
// stream while both engine locks are held.
type WorkContext struct {
	c *Client
}

// DoWork runs fn with exclusive control of both directions of the stream.
// The background receiver cannot drain the transport for the duration, so
// fn must consume whatever traffic it provokes. Lock acquisition is bounded
// by 60 seconds; a failed acquire reports int(ResultTimeout).
func (c *Client) DoWork(fn Work) int {
	if !c.sendLock.acquire(maxLockTime) {
		return int(ResultTimeout)
	}
	defer c.sendLock.release()
	if !c.recvLock.acquire(maxLockTime) {
		return int(ResultTimeout)
	}
	defer c.recvLock.release()

	c.busy.Store(true)
	defer c.busy.Store(false)

	c.mu.Lock()
	c.rcvCnt = 0
	c.mu.Unlock()

	return fn(&WorkContext{c: c})
}

// Read pulls bytes from the transport. Received bytes still pass through
// the URC dispatcher, so notifications are never silently dropped during a
// manual job. Returns 0 when nothing is available.
func (w *WorkContext) Read(p []byte) int {
	n, _ := w.c.transport.Read(p)
	if n > 0 {
		w.c.urcProcess(p[:n])
	}
	return n
}

// Write sends raw bytes without a line terminator.
func (w *WorkContext) Write(p []byte) int {
	n, _ := w.c.transport.Write(p)
	return n
}

// Printf formats a command line and sends it CRLF-terminated.
func (w *WorkContext) Printf(format string, args ...any) {
	w.c.putLine(fmt.Sprintf(format, args...))
}

// WaitRecv blocks until expect or the generic error token appears in the
// incoming bytes, or timeout elapses. Accumulation is local to the call; if
// it fills up, matching restarts from empty.
func (w *WorkContext) WaitRecv(expect string, timeout time.Duration) Result {
	var buf [64]byte
	cnt := 0
	ret := ResultTimeout

	start := time.Now()
	for time.Since(start) < timeout {
		if cnt == len(buf) {
			cnt = 0
		}
		n := w.Read(buf[cnt:])
		if n == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		cnt += n

		text := string(buf[:cnt])
		if strings.Contains(text, expect) {
			ret = ResultOK
			break
		}
		if strings.Contains(text, ErrorToken) {
			ret = ResultError
			break
		}
	}

	w.c.debugf("%s", buf[:cnt])
	return ret
}
