package chainclient

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	pkgerrors "github.com/pkg/errors"
	logger "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/blockwatch/sentinel/internal/model"
	"github.com/blockwatch/sentinel/pkg/retry"
)

var evmLog = logger.With().Str("component", "chainclient.evm").Logger()

// maxRetryAttempts is spec.md §4.1's retry budget: base 100ms, factor 2,
// cap 10s, max 4 attempts.
const maxRetryAttempts = 4

// receiptFetchConcurrency bounds how many receipts are fetched in
// parallel per block.
const receiptFetchConcurrency = 8

// EVMBlock bundles a fetched block with its transactions. pkg/decoder's
// EVM variant consumes this directly.
type EVMBlock struct {
	Height uint64
	Block  *types.Block
}

// EVMReceipts bundles per-transaction receipts for an EVMBlock.
type EVMReceipts struct {
	ByTxHash map[common.Hash]*types.Receipt
}

// EVMLogs bundles logs returned by an eth_getLogs call.
type EVMLogs struct {
	Logs []types.Log
}

// EVMClient is the EVM ChainClient variant (spec.md §4.1), multiplexing
// calls over the network's weighted RPC endpoint pool.
type EVMClient struct {
	network model.Network
	pool    *pool
	timeout time.Duration

	mu      sync.Mutex
	clients map[int]*ethclient.Client
}

// NewEVMClient returns an EVMClient for network, applying rpcTimeout to
// every individual RPC call (spec.md §5 default 15s).
func NewEVMClient(network model.Network, rpcTimeout time.Duration) *EVMClient {
	return &EVMClient{
		network: network,
		pool:    newPool(network.Endpoints),
		timeout: rpcTimeout,
		clients: make(map[int]*ethclient.Client),
	}
}

func (c *EVMClient) dial(i int) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.clients[i]; ok {
		return cl, nil
	}
	cl, err := ethclient.Dial(c.pool.url(i))
	if err != nil {
		return nil, err
	}
	c.clients[i] = cl
	return cl, nil
}

// withRetry runs fn against a weighted-randomly selected endpoint,
// rotating to another endpoint and retrying with backoff on transport
// error or 5xx/rate-limit, per spec.md §4.1.
func (c *EVMClient) withRetry(ctx context.Context, fn func(ctx context.Context, cl *ethclient.Client) error) error {
	err := retry.Do(ctx, maxRetryAttempts, isRetryableEVMError, func(attempt int) error {
		idx := c.pool.pick()
		cl, dialErr := c.dial(idx)
		if dialErr != nil {
			c.pool.markBad(idx, retry.CapDelay)
			return pkgerrors.Wrapf(dialErr, "dialing %s", c.pool.url(idx))
		}
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		if err := fn(callCtx, cl); err != nil {
			evmLog.Warn().
				Str("network", c.network.Slug).
				Str("endpoint", c.pool.url(idx)).
				Int("attempt", attempt).
				Err(err).
				Msg("rpc call failed")
			c.pool.markBad(idx, retry.Delay(attempt))
			return err
		}
		return nil
	})
	if err != nil {
		return &model.TransientFetch{Network: c.network.Slug, Cause: pkgerrors.Wrap(err, "exhausted retries")}
	}
	return nil
}

// isRetryableEVMError classifies transport/5xx/rate-limit errors as
// retryable, the same string-matching idiom the teacher's eventfeed.go
// uses to classify upstream RPC error messages.
func isRetryableEVMError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"timeout", "timed out", "connection refused", "connection reset",
		"too many requests", "rate limit", "429", "502", "503", "504",
		"eof", "no such host", "i/o timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// LatestHeight implements chainclient.Client.
func (c *EVMClient) LatestHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := c.withRetry(ctx, func(ctx context.Context, cl *ethclient.Client) error {
		h, err := cl.BlockNumber(ctx)
		if err != nil {
			return err
		}
		height = h
		return nil
	})
	return height, err
}

// FetchBlock implements chainclient.Client.
func (c *EVMClient) FetchBlock(ctx context.Context, height uint64) (interface{}, error) {
	var block *types.Block
	err := c.withRetry(ctx, func(ctx context.Context, cl *ethclient.Client) error {
		b, err := cl.BlockByNumber(ctx, new(big.Int).SetUint64(height))
		if err != nil {
			return err
		}
		block = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return EVMBlock{Height: height, Block: block}, nil
}

// FetchReceiptsOrTraces implements chainclient.Client: fetches a receipt
// per transaction in block, bounded by receiptFetchConcurrency.
func (c *EVMClient) FetchReceiptsOrTraces(ctx context.Context, block interface{}) (interface{}, error) {
	b, ok := block.(EVMBlock)
	if !ok {
		return nil, fmt.Errorf("unexpected block type %T for EVM receipts", block)
	}

	receipts := &EVMReceipts{ByTxHash: make(map[common.Hash]*types.Receipt, len(b.Block.Transactions()))}
	if len(b.Block.Transactions()) == 0 {
		return receipts, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(receiptFetchConcurrency)
	for _, tx := range b.Block.Transactions() {
		tx := tx
		g.Go(func() error {
			var receipt *types.Receipt
			err := c.withRetry(gctx, func(ctx context.Context, cl *ethclient.Client) error {
				r, err := cl.TransactionReceipt(ctx, tx.Hash())
				if err != nil {
					return err
				}
				receipt = r
				return nil
			})
			if err != nil {
				return err
			}
			mu.Lock()
			receipts.ByTxHash[tx.Hash()] = receipt
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return receipts, nil
}

// FetchLogs implements chainclient.Client.
func (c *EVMClient) FetchLogs(ctx context.Context, fromHeight, toHeight uint64, addresses []string) (interface{}, error) {
	addrs := make([]common.Address, 0, len(addresses))
	for _, a := range addresses {
		addrs = append(addrs, common.HexToAddress(a))
	}
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromHeight),
		ToBlock:   new(big.Int).SetUint64(toHeight),
		Addresses: addrs,
	}

	var logs []types.Log
	err := c.withRetry(ctx, func(ctx context.Context, cl *ethclient.Client) error {
		l, err := cl.FilterLogs(ctx, query)
		if err != nil {
			return err
		}
		logs = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return EVMLogs{Logs: logs}, nil
}

// Close implements chainclient.Client.
func (c *EVMClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cl := range c.clients {
		cl.Close()
	}
}
