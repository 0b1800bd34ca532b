package lnrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

const dialTimeout = 2 * time.Second

// Client talks JSON-RPC 2.0 over a unix stream socket. Calls are serialized.
type Client struct {
	path string

	mu     sync.Mutex
	conn   net.Conn
	dec    *json.Decoder
	nextID uint64
}

// Dial connects to the control socket at path.
func Dial(ctx context.Context, path string) (*Client, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	return &Client{path: path, conn: conn, dec: json.NewDecoder(conn)}, nil
}

// Path returns the socket path the client is connected to.
func (c *Client) Path() string {
	return c.path
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Call issues method with params and decodes the result into result, which
// may be nil to discard it.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return net.ErrClosed
	}
	if params == nil {
		params = map[string]any{}
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	c.nextID++
	req := request{JSONRPC: "2.0", ID: c.nextID, Method: method, Params: params}
	if err := json.NewEncoder(c.conn).Encode(req); err != nil {
		return c.wrapErr(ctx, fmt.Errorf("send %s: %w", method, err))
	}

	for {
		var resp response
		if err := c.dec.Decode(&resp); err != nil {
			return c.wrapErr(ctx, fmt.Errorf("read %s response: %w", method, err))
		}
		if resp.ID != req.ID {
			// Notifications and stale replies carry other ids.
			continue
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	}
}

func (c *Client) wrapErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}

// GetInfo issues the no-argument status query.
func (c *Client) GetInfo(ctx context.Context) (*GetInfoResponse, error) {
	var info GetInfoResponse
	if err := c.Call(ctx, "getinfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Stop requests a graceful daemon shutdown. lightningd may close the socket
// before the reply is flushed; that is reported as success.
func (c *Client) Stop(ctx context.Context) error {
	err := c.Call(ctx, "stop", nil, nil)
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil
	}
	return err
}
