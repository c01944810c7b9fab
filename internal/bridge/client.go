package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	// DefaultPort is the loopback port the injected listener serves on.
	DefaultPort = 9080

	// DefaultCommandTimeout bounds how long a single command may wait for
	// its reply before the exchange is abandoned.
	DefaultCommandTimeout = 5 * time.Second

	// defaultDialTimeout bounds connection establishment so a dead listener
	// surfaces as an error instead of a hang.
	defaultDialTimeout = 3 * time.Second
)

// Client is the request correlator: it serializes callers down to exactly
// one in-flight command and matches each reply to the command that is
// waiting for it. The wire protocol has no request IDs, so correlation is
// purely by order; the serialization here is what makes that sound.
type Client struct {
	conn    *conn
	timeout time.Duration
	log     *log.Logger

	// sendMu is held for a full exchange (write through settle), so a
	// second concurrent Send waits its turn instead of pipelining.
	sendMu chan struct{}
}

// NewClient creates a correlator dialing 127.0.0.1:port on demand.
func NewClient(port int, timeout time.Duration, logger *log.Logger) *Client {
	if port == 0 {
		port = DefaultPort
	}
	if timeout == 0 {
		timeout = DefaultCommandTimeout
	}
	c := &Client{
		conn:    newConn(fmt.Sprintf("127.0.0.1:%d", port), defaultDialTimeout, logger),
		timeout: timeout,
		log:     logger,
		sendMu:  make(chan struct{}, 1),
	}
	c.sendMu <- struct{}{}
	return c
}

// Send issues one command and returns the raw JSON reply.
//
// The exchange settles on exactly one of: reply, connection error, remote
// close, or timeout, whichever fires first; the rest become no-ops. An
// abandoned exchange drops the socket, so a reply arriving after the
// timeout dies with the old stream instead of correlating to a later
// command. Send never hangs: every path rejects or resolves within the
// timeout window.
func (c *Client) Send(ctx context.Context, commandType string, params map[string]any) ([]byte, error) {
	payload, err := buildCommand(commandType, params)
	if err != nil {
		return nil, err
	}

	// Take the exchange slot.
	select {
	case <-c.sendMu:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { c.sendMu <- struct{}{} }()

	if err := c.conn.acquire(ctx); err != nil {
		return nil, err
	}

	ch, err := c.conn.installPending(payload)
	if err != nil {
		return nil, err
	}
	c.log.Debug("command sent", "type", commandType)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case s := <-ch:
		return c.finish(commandType, s)
	case <-timer.C:
		// The reply may have raced in just before the slot was cleared;
		// otherwise the socket is gone and the next Send re-dials.
		c.conn.abandonPending(ch)
		select {
		case s := <-ch:
			return c.finish(commandType, s)
		default:
		}
		c.log.Warn("command timed out, dropping connection", "type", commandType, "timeout", c.timeout)
		return nil, timeoutError(commandType)
	case <-ctx.Done():
		c.conn.abandonPending(ch)
		select {
		case s := <-ch:
			return c.finish(commandType, s)
		default:
		}
		return nil, ctx.Err()
	}
}

// finish logs and unwraps a settlement.
func (c *Client) finish(commandType string, s settlement) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	if status := gjson.GetBytes(s.payload, "status"); status.Exists() {
		c.log.Debug("reply received", "type", commandType, "status", status.String())
	} else {
		c.log.Debug("reply received", "type", commandType)
	}
	return s.payload, nil
}

// Close discards the connection, rejecting any in-flight exchange with the
// given cause (a nil cause is replaced with a generic connection-closed
// error, never a success). Subsequent Sends re-dial from scratch.
func (c *Client) Close(cause error) {
	c.conn.close(cause)
}

// Connected reports whether a socket to the listener is currently open.
func (c *Client) Connected() bool {
	return c.conn.connected()
}

// buildCommand assembles the outbound NDJSON object: a type discriminator
// plus an optional params object.
func buildCommand(commandType string, params map[string]any) ([]byte, error) {
	if commandType == "" {
		return nil, fmt.Errorf("%w: command type is required", ErrState)
	}

	payload, err := sjson.SetBytes([]byte(`{}`), "type", commandType)
	if err != nil {
		return nil, fmt.Errorf("failed to build command: %w", err)
	}
	for key, value := range params {
		payload, err = sjson.SetBytes(payload, "params."+key, value)
		if err != nil {
			return nil, fmt.Errorf("failed to set param %q: %w", key, err)
		}
	}
	return payload, nil
}
