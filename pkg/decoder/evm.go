package decoder

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	logger "github.com/rs/zerolog/log"

	"github.com/blockwatch/sentinel/internal/model"
	"github.com/blockwatch/sentinel/pkg/chainclient"
)

var evmLog = logger.With().Str("component", "decoder.evm").Logger()

// EVMDecoder decodes EVM transactions, function calls and logs against
// each monitored address's own ABI (spec.md §4.1).
type EVMDecoder struct{}

// NewEVMDecoder returns an EVMDecoder.
func NewEVMDecoder() *EVMDecoder { return &EVMDecoder{} }

type addressABI struct {
	address common.Address
	abi     abi.ABI
}

func buildAddressABIs(addresses []model.MonitoredAddress) (map[common.Address]abi.ABI, error) {
	out := make(map[common.Address]abi.ABI, len(addresses))
	for _, a := range addresses {
		if a.ABI == "" {
			continue
		}
		parsed, err := abi.JSON(strings.NewReader(a.ABI))
		if err != nil {
			return nil, fmt.Errorf("parsing ABI for address %s: %w", a.Address, err)
		}
		out[common.HexToAddress(a.Address)] = parsed
	}
	return out, nil
}

// Decode implements decoder.Decoder.
func (d *EVMDecoder) Decode(
	_ context.Context,
	blockI, receiptsI, logsI interface{},
	addresses []model.MonitoredAddress,
) ([]model.MatchCandidate, error) {
	block, ok := blockI.(chainclient.EVMBlock)
	if !ok {
		return nil, fmt.Errorf("unexpected block type %T for EVM decode", blockI)
	}
	receipts, _ := receiptsI.(*chainclient.EVMReceipts)
	logs, _ := logsI.(chainclient.EVMLogs)

	abis, err := buildAddressABIs(addresses)
	if err != nil {
		return nil, err
	}

	logsByTx := make(map[common.Hash][]types.Log)
	for _, l := range logs.Logs {
		logsByTx[l.TxHash] = append(logsByTx[l.TxHash], l)
	}

	var candidates []model.MatchCandidate
	signer := types.LatestSignerForChainID(block.Block.ChainId())
	for _, tx := range block.Block.Transactions() {
		from, _ := types.Sender(signer, tx)

		to := ""
		if tx.To() != nil {
			to = tx.To().Hex()
		}

		status := model.TxStatusAny
		if receipts != nil {
			if r, ok := receipts.ByTxHash[tx.Hash()]; ok && r != nil {
				if r.Status == types.ReceiptStatusSuccessful {
					status = model.TxStatusSuccess
				} else {
					status = model.TxStatusFailure
				}
			}
		}

		evmTx := &model.EVMTransaction{
			Hash:     tx.Hash().Hex(),
			From:     from.Hex(),
			To:       to,
			Value:    tx.Value().String(),
			Gas:      tx.Gas(),
			GasPrice: tx.GasPrice().String(),
			Status:   status,
		}

		produced := 0

		// Decode event candidates first, in log encounter order, per
		// spec.md §4.5.
		eventIndex := 0
		for _, l := range logsByTx[tx.Hash()] {
			contractABI, ok := abis[l.Address]
			if !ok || len(l.Topics) == 0 {
				continue
			}
			ev, err := contractABI.EventByID(l.Topics[0])
			if err != nil {
				continue // not a known event for this address's ABI
			}
			params, decErr := decodeEventParams(ev, l)
			if decErr != nil {
				wrapped := &model.DecodeError{TxHash: tx.Hash().Hex(), Cause: decErr}
				evmLog.Error().Str("txn_hash", tx.Hash().Hex()).Err(wrapped).Msg("decoding event")
				continue
			}
			candidates = append(candidates, model.MatchCandidate{
				Kind:            model.CandidateKindEVM,
				BlockNumber:     block.Height,
				EVMTransaction:  evmTx,
				DecodedEvent:    &model.DecodedEvent{Signature: ev.Sig, Index: eventIndex, Params: params},
				Address:         l.Address.Hex(),
			})
			eventIndex++
			produced++
		}

		// Decode the transaction's own function call, if any.
		if tx.To() != nil {
			if contractABI, ok := abis[*tx.To()]; ok && len(tx.Data()) >= 4 {
				if method, err := contractABI.MethodById(tx.Data()[:4]); err == nil {
					params, decErr := decodeFunctionParams(method, tx.Data()[4:])
					if decErr != nil {
						wrapped := &model.DecodeError{TxHash: tx.Hash().Hex(), Cause: decErr}
						evmLog.Error().Str("txn_hash", tx.Hash().Hex()).Err(wrapped).Msg("decoding function call")
					} else {
						candidates = append(candidates, model.MatchCandidate{
							Kind:            model.CandidateKindEVM,
							BlockNumber:     block.Height,
							EVMTransaction:  evmTx,
							DecodedFunction: &model.DecodedFunction{Signature: method.Sig, Index: 0, Params: params},
							Address:         tx.To().Hex(),
						})
						produced++
					}
				}
			}
		}

		if produced == 0 {
			candidates = append(candidates, model.MatchCandidate{
				Kind:           model.CandidateKindEVM,
				BlockNumber:    block.Height,
				EVMTransaction: evmTx,
				Address:        to,
			})
		}
	}

	return candidates, nil
}

func decodeFunctionParams(method abi.Method, input []byte) (map[string]interface{}, error) {
	values, err := method.Inputs.Unpack(input)
	if err != nil {
		return nil, fmt.Errorf("unpacking function inputs: %w", err)
	}
	params := make(map[string]interface{}, len(method.Inputs))
	for i, arg := range method.Inputs {
		name := arg.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		params[name] = normalizeABIValue(values[i])
	}
	return params, nil
}

func decodeEventParams(ev *abi.Event, l types.Log) (map[string]interface{}, error) {
	params := make(map[string]interface{}, len(ev.Inputs))

	nonIndexed := ev.Inputs.NonIndexed()
	if len(nonIndexed) > 0 {
		values, err := nonIndexed.Unpack(l.Data)
		if err != nil {
			return nil, fmt.Errorf("unpacking non-indexed event data: %w", err)
		}
		for i, arg := range nonIndexed {
			params[arg.Name] = normalizeABIValue(values[i])
		}
	}

	topicIdx := 1 // topics[0] is the event signature hash
	for _, arg := range ev.Inputs {
		if !arg.Indexed {
			continue
		}
		if topicIdx >= len(l.Topics) {
			break
		}
		// Indexed dynamic types (string, bytes, arrays) are stored in
		// topics as their keccak256 hash and cannot be recovered here;
		// only statically-sized indexed types decode correctly.
		values, err := abi.Arguments{{Type: arg.Type}}.Unpack(l.Topics[topicIdx].Bytes())
		if err == nil && len(values) == 1 {
			params[arg.Name] = normalizeABIValue(values[0])
		}
		topicIdx++
	}
	return params, nil
}

// normalizeABIValue converts go-ethereum's unpacked Go types into plain
// values suitable for expression evaluation and JSON round-tripping:
// big.Int and addresses become strings, byte slices become hex.
func normalizeABIValue(v interface{}) interface{} {
	switch val := v.(type) {
	case common.Address:
		return val.Hex()
	case [32]byte:
		return common.BytesToHash(val[:]).Hex()
	case []byte:
		return common.Bytes2Hex(val)
	case interface{ String() string }:
		return val.String()
	default:
		return val
	}
}
