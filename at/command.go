package at

import "time"

// Do sends cmd terminated by CRLF and blocks until the engine reports a
// result. A nil r selects the default descriptor: expect "OK", 64-byte
// buffer, 5 second timeout. The descriptor's timeout also bounds the send
// lock wait, so a Do that cannot even start reports ResultTimeout the same
// as one that started and never matched.
//
// Do is safe for concurrent use; invocations are fully serialized.
func (c *Client) Do(r *Response, cmd string) Result {
	if r == nil {
		r = &Response{Expect: OK, Buf: make([]byte, DefaultBufSize), Timeout: DefaultTimeout}
	}
	if r.Expect == "" {
		r.Expect = OK
	}
	if len(r.Buf) == 0 {
		r.Buf = make([]byte, DefaultBufSize)
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultTimeout
	}

	if !c.sendLock.acquire(r.Timeout) {
		return ResultTimeout
	}
	defer c.sendLock.release()
	c.busy.Store(true)
	defer c.busy.Store(false)

	// Let any partial URC accumulation settle before interleaving a
	// command with it. The dispatcher's quiet-period discard is what
	// eventually unsticks a stalled accumulation.
	for c.urcCnt.Load() > 0 {
		time.Sleep(10 * time.Millisecond)
	}

	// Discard a completion left over from a previous wait that timed out
	// just as its matcher fired.
	select {
	case <-c.done:
	default:
	}

	c.mu.Lock()
	c.resp = r
	c.rcvCnt = 0
	c.respTimer = time.Now()
	c.mu.Unlock()

	c.putLine(cmd)
	ret := c.waitResp(r)
	c.debugf("<- %s", r.String())
	return ret
}

// waitResp blocks on the completion signal for the descriptor's timeout and
// uninstalls the descriptor if the deadline fires first.
func (c *Client) waitResp(r *Response) Result {
	timer := time.NewTimer(r.Timeout)
	defer timer.Stop()

	select {
	case ret := <-c.done:
		return ret
	case <-timer.C:
	}

	// The deadline fired here, but the matcher may have completed
	// concurrently; if the descriptor is already gone, its verdict wins.
	c.mu.Lock()
	if c.resp == r {
		r.n = c.rcvCnt
		c.resp = nil
		c.mu.Unlock()
		return ResultTimeout
	}
	c.mu.Unlock()

	select {
	case ret := <-c.done:
		return ret
	default:
		return ResultTimeout
	}
}
