package harness

import (
	"context"
	"time"

	"lnharness/internal/lnrpc"
)

const probeTimeout = 2 * time.Second

// Client is the control connection a ready Node exposes.
type Client interface {
	GetInfo(ctx context.Context) (*lnrpc.GetInfoResponse, error)
	Stop(ctx context.Context) error
	Close() error
}

// Prober checks whether the control socket at path answers a status query.
// On success it returns the connected client and the status it received.
type Prober interface {
	Probe(ctx context.Context, path string) (Client, *lnrpc.GetInfoResponse, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, path string) (Client, *lnrpc.GetInfoResponse, error)

func (f ProberFunc) Probe(ctx context.Context, path string) (Client, *lnrpc.GetInfoResponse, error) {
	return f(ctx, path)
}

// RPCProber dials the socket with lnrpc and issues getinfo.
type RPCProber struct{}

func (RPCProber) Probe(ctx context.Context, path string) (Client, *lnrpc.GetInfoResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	client, err := lnrpc.Dial(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	info, err := client.GetInfo(ctx)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return client, info, nil
}
