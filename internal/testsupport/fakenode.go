package testsupport

import (
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
)

// FakeNode serves the two control calls the harness uses (getinfo, stop) on a
// lightningd-shaped unix socket.
type FakeNode struct {
	path     string
	dir      string
	network  string
	listener net.Listener

	mu       sync.Mutex
	calls    map[string]int
	conns    map[net.Conn]struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	ignoreStop bool
}

// StartFakeNode listens on <lightningDir>/<network>/lightning-rpc.
func StartFakeNode(lightningDir, network string) (*FakeNode, error) {
	sockDir := filepath.Join(lightningDir, network)
	if err := os.MkdirAll(sockDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(sockDir, "lightning-rpc")
	_ = os.Remove(path)
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	n := &FakeNode{
		path:     path,
		dir:      lightningDir,
		network:  network,
		listener: listener,
		calls:    make(map[string]int),
		conns:    make(map[net.Conn]struct{}),
		stopped:  make(chan struct{}),
	}
	n.wg.Add(1)
	go n.accept()
	return n, nil
}

// SocketPath returns the control socket path.
func (n *FakeNode) SocketPath() string {
	return n.path
}

// Stopped is closed once a stop call has been answered.
func (n *FakeNode) Stopped() <-chan struct{} {
	return n.stopped
}

// Calls reports how many times method was invoked.
func (n *FakeNode) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// SetIgnoreStop makes stop succeed without signalling Stopped.
func (n *FakeNode) SetIgnoreStop(ignore bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ignoreStop = ignore
}

// Close stops accepting, drops open connections and removes the socket.
func (n *FakeNode) Close() error {
	err := n.listener.Close()
	n.mu.Lock()
	for conn := range n.conns {
		_ = conn.Close()
	}
	n.mu.Unlock()
	n.wg.Wait()
	_ = os.Remove(n.path)
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (n *FakeNode) accept() {
	defer n.wg.Done()
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			return
		}
		n.mu.Lock()
		n.conns[conn] = struct{}{}
		n.mu.Unlock()
		n.wg.Add(1)
		go n.serve(conn)
	}
}

type fakeRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

type fakeResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *fakeError      `json:"error,omitempty"`
}

type fakeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (n *FakeNode) serve(conn net.Conn) {
	defer n.wg.Done()
	defer func() {
		n.mu.Lock()
		delete(n.conns, conn)
		n.mu.Unlock()
		_ = conn.Close()
	}()

	dec := json.NewDecoder(conn)
	for {
		var req fakeRequest
		if err := dec.Decode(&req); err != nil {
			return
		}
		n.mu.Lock()
		n.calls[req.Method]++
		ignoreStop := n.ignoreStop
		n.mu.Unlock()

		resp := fakeResponse{JSONRPC: "2.0", ID: req.ID}
		switch req.Method {
		case "getinfo":
			resp.Result = map[string]any{
				"id":            "02fakefakefakefakefakefakefakefakefakefakefakefakefakefakefakefake",
				"alias":         "FAKENODE",
				"network":       n.network,
				"blockheight":   101,
				"version":       "v0.0.0-fake",
				"lightning-dir": filepath.Join(n.dir, n.network),
			}
		case "stop":
			resp.Result = "Shutdown complete"
		default:
			resp.Error = &fakeError{Code: -32601, Message: "Unknown command '" + req.Method + "'"}
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return
		}
		if _, err := conn.Write(append(data, '\n', '\n')); err != nil {
			return
		}
		if req.Method == "stop" && !ignoreStop {
			n.stopOnce.Do(func() { close(n.stopped) })
		}
	}
}
