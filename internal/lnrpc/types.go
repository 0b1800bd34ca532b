package lnrpc

import (
	"encoding/json"
	"fmt"
)

// SocketName is the fixed filename of the lightningd control socket.
const SocketName = "lightning-rpc"

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is an error object returned by the daemon.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Address is one announced or bound node address.
type Address struct {
	Type    string `json:"type"`
	Address string `json:"address"`
	Port    int    `json:"port"`
}

// GetInfoResponse is the subset of getinfo the harness reports.
type GetInfoResponse struct {
	ID                  string    `json:"id"`
	Alias               string    `json:"alias"`
	Color               string    `json:"color"`
	NumPeers            int       `json:"num_peers"`
	NumActiveChannels   int       `json:"num_active_channels"`
	NumPendingChannels  int       `json:"num_pending_channels"`
	NumInactiveChannels int       `json:"num_inactive_channels"`
	Version             string    `json:"version"`
	BlockHeight         int64     `json:"blockheight"`
	Network             string    `json:"network"`
	LightningDir        string    `json:"lightning-dir"`
	Address             []Address `json:"address"`
	Binding             []Address `json:"binding"`
}
