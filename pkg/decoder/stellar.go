package decoder

import (
	"context"
	"fmt"

	"github.com/blockwatch/sentinel/internal/model"
	"github.com/blockwatch/sentinel/pkg/chainclient"
)

// StellarDecoder decodes Stellar ledger transactions and contract events.
// Parameters are exposed positionally, since Stellar contract ABIs carry
// no parameter names (spec.md §4.1).
type StellarDecoder struct{}

// NewStellarDecoder returns a StellarDecoder.
func NewStellarDecoder() *StellarDecoder { return &StellarDecoder{} }

// Decode implements decoder.Decoder.
func (d *StellarDecoder) Decode(
	_ context.Context,
	_, txsI, eventsI interface{},
	_ []model.MonitoredAddress,
) ([]model.MatchCandidate, error) {
	txs, ok := txsI.(chainclient.StellarTransactions)
	if !ok {
		return nil, fmt.Errorf("unexpected transactions type %T for Stellar decode", txsI)
	}
	events, _ := eventsI.(chainclient.StellarEvents)

	eventsByTx := make(map[string][]chainclient.StellarContractEvent)
	for _, e := range events.Events {
		eventsByTx[e.TxHash] = append(eventsByTx[e.TxHash], e)
	}

	var candidates []model.MatchCandidate
	for _, tx := range txs.Txs {
		stellarTx := &model.StellarTransaction{
			Hash:          tx.Hash,
			SourceAccount: tx.SourceAccount,
			Fee:           tx.Fee,
			Status:        tx.Status,
		}

		produced := 0

		eventIndex := 0
		for _, e := range eventsByTx[tx.Hash] {
			candidates = append(candidates, model.MatchCandidate{
				Kind:               model.CandidateKindStellar,
				LedgerSequence:     txs.Height,
				StellarTransaction: stellarTx,
				DecodedEvent: &model.DecodedEvent{
					Signature:  e.Signature,
					Index:      eventIndex,
					Positional: e.Args,
				},
				Address: e.ContractID,
			})
			eventIndex++
			produced++
		}

		if tx.Invocation != nil {
			candidates = append(candidates, model.MatchCandidate{
				Kind:               model.CandidateKindStellar,
				LedgerSequence:     txs.Height,
				StellarTransaction: stellarTx,
				DecodedFunction: &model.DecodedFunction{
					Signature:  tx.Invocation.FunctionName,
					Index:      0,
					Positional: tx.Invocation.Args,
				},
			})
			produced++
		}

		if produced == 0 {
			candidates = append(candidates, model.MatchCandidate{
				Kind:               model.CandidateKindStellar,
				LedgerSequence:     txs.Height,
				StellarTransaction: stellarTx,
			})
		}
	}

	return candidates, nil
}
