package chainclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	pkgerrors "github.com/pkg/errors"
	logger "github.com/rs/zerolog/log"

	"github.com/blockwatch/sentinel/internal/model"
	"github.com/blockwatch/sentinel/pkg/retry"
)

var stellarLog = logger.With().Str("component", "chainclient.stellar").Logger()

// StellarLedgerHeader is the subset of a Stellar ledger header this
// daemon cares about.
type StellarLedgerHeader struct {
	Sequence uint64 `json:"sequence"`
}

// StellarBlock is the result of FetchBlock for the Stellar variant.
type StellarBlock struct {
	Height uint64
	Header StellarLedgerHeader
}

// StellarInvocation is a decoded InvokeHostFunction operation, exposed
// positionally per spec.md §4.1 (Stellar contract ABIs carry no parameter
// names).
type StellarInvocation struct {
	FunctionName string
	Args         []interface{}
}

// StellarTx is one transaction within a ledger.
type StellarTx struct {
	Hash          string
	SourceAccount string
	Fee           string
	Status        model.TxStatus
	Invocation    *StellarInvocation
}

// StellarTransactions is the result of FetchReceiptsOrTraces for the
// Stellar variant: the ledger's transactions, enriched with invocation
// decode.
type StellarTransactions struct {
	Height uint64
	Txs    []StellarTx
}

// StellarContractEvent is one emitted contract event.
type StellarContractEvent struct {
	TxHash     string
	ContractID string
	Signature  string
	Args       []interface{}
}

// StellarEvents is the result of FetchLogs for the Stellar variant.
type StellarEvents struct {
	Events []StellarContractEvent
}

// StellarClient is the Stellar ChainClient variant (spec.md §4.1),
// speaking JSON-RPC 2.0 directly over net/http since no Stellar SDK
// appears anywhere in the example corpus to ground a third-party client
// on (see DESIGN.md).
type StellarClient struct {
	network model.Network
	pool    *pool
	http    *http.Client
	timeout time.Duration
	nextID  int64
}

// NewStellarClient returns a StellarClient for network.
func NewStellarClient(network model.Network, rpcTimeout time.Duration) *StellarClient {
	return &StellarClient{
		network: network,
		pool:    newPool(network.Endpoints),
		http:    &http.Client{Timeout: rpcTimeout},
		timeout: rpcTimeout,
	}
}

type jsonrpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *jsonrpcError   `json:"error"`
}

// call performs one JSON-RPC 2.0 request against a weighted-randomly
// selected endpoint, retrying with backoff and rotation on transport or
// 5xx/rate-limit errors, per spec.md §4.1.
func (c *StellarClient) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	err := retry.Do(ctx, maxRetryAttempts, isRetryableStellarError, func(attempt int) error {
		idx := c.pool.pick()
		reqErr := c.doOnce(ctx, c.pool.url(idx), method, params, out)
		if reqErr != nil {
			stellarLog.Warn().
				Str("network", c.network.Slug).
				Str("endpoint", c.pool.url(idx)).
				Int("attempt", attempt).
				Err(reqErr).
				Msg("rpc call failed")
			c.pool.markBad(idx, retry.Delay(attempt))
			return reqErr
		}
		return nil
	})
	if err != nil {
		return &model.TransientFetch{Network: c.network.Slug, Cause: pkgerrors.Wrap(err, "exhausted retries")}
	}
	return nil
}

func (c *StellarClient) doOnce(ctx context.Context, url, method string, params interface{}, out interface{}) error {
	id := atomic.AddInt64(&c.nextID, 1)
	body, err := json.Marshal(jsonrpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rpc endpoint returned status %d", resp.StatusCode)
	}

	var rpcResp jsonrpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}
	return nil
}

func isRetryableStellarError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"timeout", "timed out", "connection refused", "connection reset",
		"too many requests", "rate limit", "429", "502", "503", "504", "eof",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// LatestHeight implements chainclient.Client via getLatestLedger.
func (c *StellarClient) LatestHeight(ctx context.Context) (uint64, error) {
	var out StellarLedgerHeader
	if err := c.call(ctx, "getLatestLedger", nil, &out); err != nil {
		return 0, err
	}
	return out.Sequence, nil
}

// FetchBlock implements chainclient.Client via getLedgers.
func (c *StellarClient) FetchBlock(ctx context.Context, height uint64) (interface{}, error) {
	params := map[string]interface{}{
		"startLedger": height,
		"pagination":  map[string]interface{}{"limit": 1},
	}
	var out struct {
		Ledgers []StellarLedgerHeader `json:"ledgers"`
	}
	if err := c.call(ctx, "getLedgers", params, &out); err != nil {
		return nil, err
	}
	header := StellarLedgerHeader{Sequence: height}
	if len(out.Ledgers) > 0 {
		header = out.Ledgers[0]
	}
	return StellarBlock{Height: height, Header: header}, nil
}

// FetchReceiptsOrTraces implements chainclient.Client via getTransactions,
// the Stellar analogue of EVM receipts: per-tx status plus any
// InvokeHostFunction invocation decoded positionally.
func (c *StellarClient) FetchReceiptsOrTraces(ctx context.Context, block interface{}) (interface{}, error) {
	b, ok := block.(StellarBlock)
	if !ok {
		return nil, fmt.Errorf("unexpected block type %T for Stellar transactions", block)
	}

	params := map[string]interface{}{
		"startLedger": b.Height,
		"pagination":  map[string]interface{}{"limit": 200},
	}
	var out struct {
		Transactions []struct {
			Hash          string `json:"txHash"`
			SourceAccount string `json:"sourceAccount"`
			FeeCharged    string `json:"feeCharged"`
			Status        string `json:"status"`
			Invocation    *struct {
				FunctionName string        `json:"functionName"`
				Args         []interface{} `json:"args"`
			} `json:"hostFunctionInvocation"`
		} `json:"transactions"`
	}
	if err := c.call(ctx, "getTransactions", params, &out); err != nil {
		return nil, err
	}

	txs := make([]StellarTx, 0, len(out.Transactions))
	for _, t := range out.Transactions {
		status := model.TxStatusFailure
		if strings.EqualFold(t.Status, "SUCCESS") {
			status = model.TxStatusSuccess
		}
		tx := StellarTx{
			Hash:          t.Hash,
			SourceAccount: t.SourceAccount,
			Fee:           t.FeeCharged,
			Status:        status,
		}
		if t.Invocation != nil {
			tx.Invocation = &StellarInvocation{
				FunctionName: t.Invocation.FunctionName,
				Args:         t.Invocation.Args,
			}
		}
		txs = append(txs, tx)
	}
	return StellarTransactions{Height: b.Height, Txs: txs}, nil
}

// FetchLogs implements chainclient.Client via getEvents.
func (c *StellarClient) FetchLogs(ctx context.Context, fromHeight, toHeight uint64, addresses []string) (interface{}, error) {
	params := map[string]interface{}{
		"startLedger": fromHeight,
		"endLedger":   toHeight,
		"filters": []map[string]interface{}{
			{"type": "contract", "contractIds": addresses},
		},
	}
	var out struct {
		Events []struct {
			TxHash      string        `json:"txHash"`
			ContractID  string        `json:"contractId"`
			Topic       []string      `json:"topic"`
			ValueDecoded []interface{} `json:"valueJson"`
		} `json:"events"`
	}
	if err := c.call(ctx, "getEvents", params, &out); err != nil {
		return nil, err
	}

	events := make([]StellarContractEvent, 0, len(out.Events))
	for _, e := range out.Events {
		sig := ""
		if len(e.Topic) > 0 {
			sig = e.Topic[0]
		}
		events = append(events, StellarContractEvent{
			TxHash:     e.TxHash,
			ContractID: e.ContractID,
			Signature:  sig,
			Args:       e.ValueDecoded,
		})
	}
	return StellarEvents{Events: events}, nil
}

// Close implements chainclient.Client. The Stellar variant holds no
// pooled connections beyond the shared http.Client.
func (c *StellarClient) Close() {}
