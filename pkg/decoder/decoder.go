// Package decoder turns a raw fetched block (with receipts/traces and
// logs) into a normalized MatchCandidate stream (spec.md §4.5). Each
// chain kind implements the same Decoder capability with its own
// decoding rules.
package decoder

import (
	"context"

	"github.com/blockwatch/sentinel/internal/model"
)

// Decoder is the per-chain-kind decoding capability (spec.md §9's
// "common capability set" design note).
type Decoder interface {
	// Decode consumes the opaque bundles returned by a matching
	// chainclient.Client's FetchBlock/FetchReceiptsOrTraces/FetchLogs and
	// produces one MatchCandidate per (transaction, optional decoded
	// element), in encounter order, per spec.md §4.5.
	Decode(ctx context.Context, block, receiptsOrTraces, logs interface{}, addresses []model.MonitoredAddress) ([]model.MatchCandidate, error)
}
