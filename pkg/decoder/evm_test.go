package decoder

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockwatch/sentinel/internal/model"
)

const testABI = `[
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[
		{"name":"from","type":"address","indexed":true},
		{"name":"to","type":"address","indexed":true},
		{"name":"value","type":"uint256","indexed":false}
	]}
]`

func TestDecodeFunctionParams_NamesValuesByABI(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(testABI))
	require.NoError(t, err)

	to := common.HexToAddress("0x0000000000000000000000000000000000001111")
	amount := big.NewInt(500)
	method := parsed.Methods["transfer"]
	packed, err := method.Inputs.Pack(to, amount)
	require.NoError(t, err)

	params, err := decodeFunctionParams(method, packed)
	require.NoError(t, err)
	assert.Equal(t, to.Hex(), params["to"])
	assert.Equal(t, "500", params["amount"])
}

func TestDecodeFunctionParams_MismatchedInputsWrapsAsDecodeError(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(testABI))
	require.NoError(t, err)
	method := parsed.Methods["transfer"]

	_, decErr := decodeFunctionParams(method, []byte{0x01, 0x02})
	require.Error(t, decErr)

	wrapped := &model.DecodeError{TxHash: "0xdeadbeef", Cause: decErr}
	assert.Contains(t, wrapped.Error(), "0xdeadbeef")
	assert.ErrorIs(t, wrapped, wrapped.Unwrap())
}

func TestDecodeEventParams_IndexedAndNonIndexed(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(testABI))
	require.NoError(t, err)
	ev := parsed.Events["Transfer"]

	from := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	to := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	value := big.NewInt(777)

	nonIndexed := ev.Inputs.NonIndexed()
	data, err := nonIndexed.Pack(value)
	require.NoError(t, err)

	log := types.Log{
		Address: common.HexToAddress("0x" + strings.Repeat("c", 40)),
		Topics: []common.Hash{
			ev.ID,
			common.BytesToHash(common.LeftPadBytes(from.Bytes(), 32)),
			common.BytesToHash(common.LeftPadBytes(to.Bytes(), 32)),
		},
		Data: data,
	}

	params, err := decodeEventParams(&ev, log)
	require.NoError(t, err)
	assert.Equal(t, from.Hex(), params["from"])
	assert.Equal(t, to.Hex(), params["to"])
	assert.Equal(t, "777", params["value"])
}

func TestNormalizeABIValue(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	assert.Equal(t, addr.Hex(), normalizeABIValue(addr))
	assert.Equal(t, "42", normalizeABIValue(big.NewInt(42)))
	assert.Equal(t, "0102", normalizeABIValue([]byte{1, 2}))
}

func TestBuildAddressABIs_SkipsAddressesWithoutABI(t *testing.T) {
	addresses := []model.MonitoredAddress{
		{Address: "0x1111111111111111111111111111111111111111", ABI: testABI},
		{Address: "0x2222222222222222222222222222222222222222"},
	}
	abis, err := buildAddressABIs(addresses)
	require.NoError(t, err)
	assert.Len(t, abis, 1)
	_, ok := abis[common.HexToAddress("0x1111111111111111111111111111111111111111")]
	assert.True(t, ok)
}

func TestBuildAddressABIs_RejectsMalformedABI(t *testing.T) {
	addresses := []model.MonitoredAddress{
		{Address: "0x1111111111111111111111111111111111111111", ABI: "not-json"},
	}
	_, err := buildAddressABIs(addresses)
	assert.Error(t, err)
}
