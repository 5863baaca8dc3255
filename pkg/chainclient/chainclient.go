// Package chainclient implements the per-network ChainClient abstraction
// over JSON-RPC (spec.md §4.1): fetch latest height, fetch blocks,
// receipts/traces and logs, multiplexed over a network's weighted RPC
// endpoint pool with retry-with-backoff-and-rotation on transport error.
package chainclient

import "context"

// Client is the per-network JSON-RPC abstraction. Fetch* methods return
// opaque, chain-specific bundles that the matching pkg/decoder
// implementation type-asserts back to its concrete shape; this keeps the
// interface uniform across the EVM and Stellar variants without forcing a
// shared wire representation between two unrelated RPC protocols.
type Client interface {
	// LatestHeight returns the chain's current block/ledger height.
	LatestHeight(ctx context.Context) (uint64, error)

	// FetchBlock returns the block (with its transactions) at height.
	FetchBlock(ctx context.Context, height uint64) (interface{}, error)

	// FetchReceiptsOrTraces returns receipts (EVM) or the ledger's
	// transactions with their invocations (Stellar), enriching the block
	// returned by FetchBlock with execution status/results.
	FetchReceiptsOrTraces(ctx context.Context, block interface{}) (interface{}, error)

	// FetchLogs returns logs/events in [fromHeight, toHeight] restricted
	// to addresses, when the client can filter server-side.
	FetchLogs(ctx context.Context, fromHeight, toHeight uint64, addresses []string) (interface{}, error)

	// Close releases pooled connections.
	Close()
}
