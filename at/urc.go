package at

import (
	"strings"
	"time"
)

// URC describes one recognizable unsolicited result code.
type URC struct {
	// Prefix selects this entry when it appears as a substring of the
	// accumulated bytes. Lookup is first match wins, in table order.
	Prefix string
	// EndMarks is the set of bytes that complete this notification.
	// Different notification kinds end with different markers: a line
	// report with CR/LF, a payload header with ':' or ','.
	EndMarks string
	// Handle consumes the notification. It runs synchronously on the
	// receiver path while the receive lock is held and must not block;
	// it may pull additional raw bytes via URCInfo.Read.
	Handle func(*URCInfo)
}

// URCInfo carries one matched notification to its handler.
type URCInfo struct {
	c    *Client
	data []byte
}

// Bytes returns the accumulated notification, including the terminator that
// completed it. The slice aliases the scratch buffer and is valid only for
// the duration of the handler call.
func (u *URCInfo) Bytes() []byte {
	return u.data
}

func (u *URCInfo) Text() string {
	return string(u.data)
}

// Read pulls additional raw bytes from the transport, for notifications
// that announce a payload length in their header. It reads at most once and
// may return 0 when nothing is available yet.
func (u *URCInfo) Read(p []byte) (int, error) {
	return u.c.transport.Read(p)
}

// urcProcess is the URC dispatcher. It accumulates incoming bytes into the
// scratch buffer and walks the state machine: IDLE, ACCUMULATING, and
// optionally ITEM-MATCHED once a table prefix is found, back to IDLE on the
// matched entry's terminator. Called with nil data it only evaluates the
// stale-accumulation quiet period. Runs only while recvLock is held.
func (c *Client) urcProcess(data []byte) {
	cnt := int(c.urcCnt.Load())

	if cnt > 0 && time.Now().UnixNano()-c.urcTimer.Load() > int64(c.config.URCTimeout) {
		if cnt > 2 {
			c.debugf("urc recv timeout => %s", c.urcBuf[:cnt])
		}
		cnt = 0
		c.urcItem = nil
	}

	for _, ch := range data {
		c.urcTimer.Store(time.Now().UnixNano())
		if cnt >= len(c.urcBuf) {
			// Capacity exhausted with no terminator: restart the
			// accumulation, no handler, no partial carry-over.
			cnt = 0
			c.urcItem = nil
		}
		c.urcBuf[cnt] = ch
		cnt++

		if ch != 0 && strings.IndexByte(urcEndMarks, ch) < 0 {
			continue
		}

		if c.urcItem == nil {
			c.urcItem = c.findURC(c.urcBuf[:cnt])
		}
		if c.urcItem != nil {
			if strings.IndexByte(c.urcItem.EndMarks, ch) >= 0 {
				c.debugf("<= %s", c.urcBuf[:cnt])
				c.urcItem.Handle(&URCInfo{c: c, data: c.urcBuf[:cnt]})
				cnt = 0
				c.urcItem = nil
			}
		} else if ch == '\r' || ch == '\n' || ch == 0 {
			// Unrecognized line. Trivial runs (bare CR/LF pairs)
			// and anything already claimed by an in-flight command
			// are discarded silently.
			if cnt > 2 && !c.busy.Load() {
				c.debugf("%s", c.urcBuf[:cnt])
			}
			cnt = 0
		}
	}

	c.urcCnt.Store(int32(cnt))
}

// findURC returns the first table entry whose prefix is contained in buf.
// Accumulations under 2 bytes never match; no real prefix is that short.
func (c *Client) findURC(buf []byte) *URC {
	if len(buf) < 2 {
		return nil
	}
	text := string(buf)
	for i := range c.config.URCTable {
		if strings.Contains(text, c.config.URCTable[i].Prefix) {
			return &c.config.URCTable[i]
		}
	}
	return nil
}
