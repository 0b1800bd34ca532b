// Package lnrpc is a minimal JSON-RPC 2.0 client for the lightningd control
// socket (<lightning-dir>/<network>/lightning-rpc).
//
// Only the calls the harness needs are wrapped: getinfo as the readiness
// probe and stop for graceful shutdown. Call is exported for anything else.
package lnrpc
