package at_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"i4.energy/across/atlink/at"
)

// newTestClient wires a client to a TestTransport and starts its receiver
// loop with a short poll interval. Tests coordinate with the engine by
// observing transport.Writes() and queueing replies with SendData.
func newTestClient(t *testing.T, opts ...func(*at.ConfigBuilder)) (*at.Client, *at.TestTransport) {
	t.Helper()

	transport := at.NewTestTransport()
	builder := at.NewConfigBuilder().
		WithDialer(at.TestDialer{Transport: transport}).
		WithPollInterval(time.Millisecond)
	for _, opt := range opts {
		opt(builder)
	}

	config, err := builder.Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}

	client, err := at.New(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error from New(): %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go client.Run(ctx)
	t.Cleanup(func() {
		cancel()
		client.Close()
	})

	return client, transport
}

func TestDo(t *testing.T) {
	t.Run("response split across chunks matches and is preserved", func(t *testing.T) {
		client, transport := newTestClient(t)

		results := make(chan at.Result, 1)
		resp := &at.Response{Expect: "OK", Buf: make([]byte, 64), Timeout: 2 * time.Second}
		go func() {
			results <- client.Do(resp, "AT+VER")
		}()

		wire := <-transport.Writes()
		if string(wire) != "AT+VER\r\n" {
			t.Errorf("unexpected wire format: %q", wire)
		}
		transport.SendData("AT+VER\r\n+VER:1.0\r\n")
		transport.SendData("OK\r\n")

		if res := <-results; res != at.ResultOK {
			t.Errorf("expected ResultOK, got %v", res)
		}
		// The dispatcher classifies byte by byte, so the match fires on
		// the 'K' with everything before it preserved verbatim.
		if resp.String() != "AT+VER\r\n+VER:1.0\r\nOK" {
			t.Errorf("unexpected accumulated response: %q", resp.String())
		}
	})

	t.Run("default descriptor", func(t *testing.T) {
		client, transport := newTestClient(t)

		results := make(chan at.Result, 1)
		go func() {
			results <- client.Do(nil, "AT")
		}()

		<-transport.Writes()
		transport.SendData("OK\r\n")

		if res := <-results; res != at.ResultOK {
			t.Errorf("expected ResultOK, got %v", res)
		}
	})

	t.Run("generic error token", func(t *testing.T) {
		client, transport := newTestClient(t)

		results := make(chan at.Result, 1)
		go func() {
			results <- client.Do(nil, "AT+BOGUS")
		}()

		<-transport.Writes()
		transport.SendData("ERROR\r\n")

		if res := <-results; res != at.ResultError {
			t.Errorf("expected ResultError, got %v", res)
		}
	})

	t.Run("timeout with no match", func(t *testing.T) {
		client, transport := newTestClient(t)

		resp := &at.Response{Expect: "OK", Buf: make([]byte, 64), Timeout: 50 * time.Millisecond}
		start := time.Now()
		results := make(chan at.Result, 1)
		go func() {
			results <- client.Do(resp, "AT+SLOW")
		}()

		<-transport.Writes()
		res := <-results
		elapsed := time.Since(start)

		if res != at.ResultTimeout {
			t.Errorf("expected ResultTimeout, got %v", res)
		}
		if elapsed < 40*time.Millisecond || elapsed > 2*time.Second {
			t.Errorf("timeout fired after %v, expected ~50ms", elapsed)
		}
	})

	t.Run("buffer overflow resets and matching resumes", func(t *testing.T) {
		client, transport := newTestClient(t)

		resp := &at.Response{Expect: "OK", Buf: make([]byte, 16), Timeout: 2 * time.Second}
		results := make(chan at.Result, 1)
		go func() {
			results <- client.Do(resp, "AT+DUMP")
		}()

		<-transport.Writes()
		transport.SendData(strings.Repeat("x", 30)) // exceeds the 16-byte buffer
		transport.SendData("OK\r\n")

		if res := <-results; res != at.ResultOK {
			t.Errorf("expected ResultOK after overflow recovery, got %v", res)
		}
		if !strings.Contains(resp.String(), "OK") {
			t.Errorf("expected the post-reset accumulation to hold the match, got %q", resp.String())
		}
	})

	t.Run("suspend aborts an in-flight wait", func(t *testing.T) {
		client, transport := newTestClient(t)

		resp := &at.Response{Expect: "OK", Buf: make([]byte, 64), Timeout: 2 * time.Second}
		results := make(chan at.Result, 1)
		go func() {
			results <- client.Do(resp, "AT+HANG")
		}()

		<-transport.Writes()
		client.Suspend()
		defer client.Resume()

		select {
		case res := <-results:
			if res != at.ResultAbort {
				t.Errorf("expected ResultAbort, got %v", res)
			}
		case <-time.After(time.Second):
			t.Error("suspend did not abort the wait")
		}
	})

	t.Run("concurrent commands are fully serialized", func(t *testing.T) {
		client, transport := newTestClient(t)

		results := make(chan at.Result, 2)
		for range 2 {
			go func() {
				results <- client.Do(nil, "AT")
			}()
		}

		<-transport.Writes()
		// The second command must not hit the wire while the first is
		// still outstanding.
		select {
		case wire := <-transport.Writes():
			t.Fatalf("second command sent before first completed: %q", wire)
		case <-time.After(50 * time.Millisecond):
		}
		transport.SendData("OK\r\n")

		<-transport.Writes()
		transport.SendData("OK\r\n")

		for range 2 {
			if res := <-results; res != at.ResultOK {
				t.Errorf("expected ResultOK, got %v", res)
			}
		}
	})
}

func TestClientClose(t *testing.T) {
	client, _ := newTestClient(t)

	if err := client.Close(); err != nil {
		t.Errorf("unexpected error from Close(): %v", err)
	}
	if err := client.Close(); err != at.ErrAlreadyClosed {
		t.Errorf("expected ErrAlreadyClosed, got: %v", err)
	}
}
