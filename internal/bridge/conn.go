package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// settlement is what resolves a pending request: the raw reply line or the
// failure that ended the exchange.
type settlement struct {
	payload []byte
	err     error
}

// conn owns the single outbound socket to the editor's command listener.
//
// The receive buffer, the socket, and the pending-request slot are all
// guarded by mu; the read loop for a socket is tagged with a generation
// number so a loop left over from a discarded socket can never touch the
// state of its replacement.
type conn struct {
	addr        string
	dialTimeout time.Duration
	log         *log.Logger

	mu      sync.Mutex
	sock    net.Conn
	framer  framer
	pending chan settlement
	gen     int
}

func newConn(addr string, dialTimeout time.Duration, logger *log.Logger) *conn {
	return &conn{
		addr:        addr,
		dialTimeout: dialTimeout,
		log:         logger,
	}
}

// acquire returns once a usable connection exists. An open socket is reused
// as-is; otherwise any stale reference is discarded, the receive buffer is
// cleared, and a fresh dial is attempted. Dial failures are returned to the
// caller, never retried here.
func (c *conn) acquire(ctx context.Context) error {
	c.mu.Lock()
	if c.sock != nil {
		c.mu.Unlock()
		return nil
	}
	c.framer.Reset()
	c.mu.Unlock()

	dialer := net.Dialer{Timeout: c.dialTimeout}
	sock, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return connectionError(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sock != nil {
		// Lost the dial race to another caller; keep the existing socket.
		sock.Close()
		return nil
	}
	c.sock = sock
	c.gen++
	c.log.Debug("connected to editor listener", "addr", c.addr)

	go c.readLoop(sock, c.gen)
	return nil
}

// readLoop pumps the socket into the framer until the socket dies. gen ties
// the loop to the socket it was started for.
func (c *conn) readLoop(sock net.Conn, gen int) {
	buf := make([]byte, 4096)
	for {
		n, err := sock.Read(buf)
		if n > 0 {
			c.dispatch(buf[:n], gen)
		}
		if err != nil {
			c.dropSocket(gen, err)
			return
		}
	}
}

// dispatch frames incoming bytes and settles the pending request with the
// first complete line. Lines arriving with nothing pending are unsolicited
// and dropped; a line that is not valid JSON fails the pending request as a
// protocol violation but leaves the socket alive.
func (c *conn) dispatch(data []byte, gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}

	for _, line := range c.framer.Feed(data) {
		if c.pending == nil {
			c.log.Debug("dropping unsolicited line from editor", "line", line)
			continue
		}
		if !json.Valid([]byte(line)) {
			c.settleLocked(settlement{err: protocolError([]byte(line))})
			continue
		}
		c.settleLocked(settlement{payload: []byte(line)})
	}
}

// dropSocket clears the connection after a read failure and rejects any
// pending request, distinguishing a remote close from a transport error.
func (c *conn) dropSocket(gen int, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}

	c.sock.Close()
	c.sock = nil

	var err error
	if errors.Is(cause, io.EOF) {
		err = fmt.Errorf("%w: connection closed by editor", ErrNotConnected)
	} else {
		err = fmt.Errorf("%w: connection error: %v", ErrNotConnected, cause)
	}
	c.log.Debug("editor connection lost", "cause", cause)
	if c.pending != nil {
		c.settleLocked(settlement{err: err})
	}
}

// settleLocked resolves the pending slot. The channel is buffered so the
// send can never block; the slot is cleared immediately, making any further
// reply for this exchange unsolicited. Caller must hold mu.
func (c *conn) settleLocked(s settlement) {
	c.pending <- s
	c.pending = nil
}

// installPending registers the single in-flight request slot and writes the
// command. Both happen under one lock acquisition so a reply can never
// arrive between the write and the registration.
func (c *conn) installPending(payload []byte) (chan settlement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sock == nil {
		return nil, fmt.Errorf("%w: connection lost before send", ErrNotConnected)
	}
	if c.pending != nil {
		// Structurally unreachable while Send serializes exchanges; refuse
		// rather than corrupt correlation if that ever changes.
		return nil, fmt.Errorf("%w: a request is already in flight", ErrNotConnected)
	}

	ch := make(chan settlement, 1)
	c.pending = ch

	if _, err := c.sock.Write(append(payload, '\n')); err != nil {
		c.pending = nil
		c.sock.Close()
		c.sock = nil
		c.gen++
		return nil, fmt.Errorf("%w: write failed: %v", ErrNotConnected, err)
	}
	return ch, nil
}

// abandonPending gives up on an exchange that is still unanswered. A reply
// racing in just before the call stays buffered in ch for the caller to
// drain; otherwise the slot is cleared and the socket is dropped. With no
// request IDs on the wire, a reply still in flight for the abandoned
// command would otherwise correlate to the next exchange, so the next Send
// must start on a fresh stream.
func (c *conn) abandonPending(ch chan settlement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Compare channel identity: the slot may already hold a later request
	// if this one settled and another began.
	if c.pending != ch {
		return
	}
	c.pending = nil

	if c.sock != nil {
		c.sock.Close()
		c.sock = nil
	}
	c.gen++
	c.framer.Reset()
}

// close tears the connection down, rejecting any pending request with the
// given cause. A nil cause still rejects, never resolves. Safe to call with
// no socket open.
func (c *conn) close(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cause == nil {
		cause = fmt.Errorf("%w: connection closed", ErrNotConnected)
	}
	if c.sock != nil {
		c.sock.Close()
		c.sock = nil
	}
	c.gen++
	c.framer.Reset()
	if c.pending != nil {
		c.settleLocked(settlement{err: cause})
	}
}

// connected reports whether a socket is currently open.
func (c *conn) connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock != nil
}
