package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blockwatch/sentinel/internal/model"
)

func evmCandidate() model.MatchCandidate {
	return model.MatchCandidate{
		Kind:        model.CandidateKindEVM,
		BlockNumber: 100,
		EVMTransaction: &model.EVMTransaction{
			Hash:   "0xabc",
			From:   "0x1111111111111111111111111111111111111111",
			To:     "0x2222222222222222222222222222222222222222",
			Value:  "5000000000000000000",
			Status: model.TxStatusSuccess,
		},
		Address: "0x2222222222222222222222222222222222222222",
	}
}

func TestEvaluate_NoConditionsMatchesEverything(t *testing.T) {
	e := NewEngine()
	m := model.Monitor{Name: "catch-all"}
	ok, matched := e.Evaluate(m, evmCandidate())
	assert.True(t, ok)
	assert.Equal(t, model.ConditionKindNone, matched[0].Kind)
}

func TestEvaluate_AddressMembership(t *testing.T) {
	e := NewEngine()
	m := model.Monitor{
		Name:      "watched",
		Addresses: []model.MonitoredAddress{{Address: "0x3333333333333333333333333333333333333333"}},
	}
	ok, _ := e.Evaluate(m, evmCandidate())
	assert.False(t, ok, "candidate address is not in monitor's address set")
}

func TestEvaluate_AddressMembershipIsCaseInsensitiveForEVM(t *testing.T) {
	e := NewEngine()
	m := model.Monitor{
		Name:      "watched",
		Addresses: []model.MonitoredAddress{{Address: "0x2222222222222222222222222222222222222222"}},
	}
	c := evmCandidate()
	c.Address = "0X2222222222222222222222222222222222222222"
	ok, _ := e.Evaluate(m, c)
	assert.True(t, ok, "EVM address membership must be case-insensitive")
}

func TestEvaluate_AddressMembershipIsExactForStellar(t *testing.T) {
	e := NewEngine()
	m := model.Monitor{
		Name:      "watched",
		Addresses: []model.MonitoredAddress{{Address: "CCONTRACT"}},
	}
	c := model.MatchCandidate{
		Kind:               model.CandidateKindStellar,
		Address:            "CCONTRACT",
		StellarTransaction: &model.StellarTransaction{Hash: "tx1", Status: model.TxStatusSuccess},
	}
	ok, _ := e.Evaluate(m, c)
	assert.True(t, ok)

	c.Address = "ccontract"
	ok, _ = e.Evaluate(m, c)
	assert.False(t, ok, "Stellar address membership must be case-sensitive")
}

func TestEvaluate_TransactionStatusAndExpression(t *testing.T) {
	e := NewEngine()
	m := model.Monitor{
		Name: "big-transfers",
		MatchConditions: model.MatchConditions{
			Transactions: []model.TransactionCondition{
				{Status: model.TxStatusSuccess, Expression: "value > 1000000000000000000"},
			},
		},
	}
	ok, matched := e.Evaluate(m, evmCandidate())
	assert.True(t, ok)
	assert.Equal(t, model.ConditionKindTransaction, matched[0].Kind)

	failing := evmCandidate()
	failing.EVMTransaction.Status = model.TxStatusFailure
	ok, _ = e.Evaluate(m, failing)
	assert.False(t, ok)
}

func TestEvaluate_FunctionSignatureAndParamExpression(t *testing.T) {
	e := NewEngine()
	m := model.Monitor{
		Name: "transfers",
		MatchConditions: model.MatchConditions{
			Functions: []model.FunctionCondition{
				{Signature: "transfer(address,uint256)", Expression: `amount > 100`},
			},
		},
	}
	c := evmCandidate()
	c.DecodedFunction = &model.DecodedFunction{
		Signature: "transfer(address,uint256)",
		Params:    map[string]interface{}{"amount": "500"},
	}
	ok, matched := e.Evaluate(m, c)
	assert.True(t, ok)
	assert.Equal(t, model.ConditionKindFunction, matched[0].Kind)

	c.DecodedFunction.Params["amount"] = "10"
	ok, _ = e.Evaluate(m, c)
	assert.False(t, ok)
}

func TestEvaluate_EventSignatureMismatchNoMatch(t *testing.T) {
	e := NewEngine()
	m := model.Monitor{
		Name: "approvals",
		MatchConditions: model.MatchConditions{
			Events: []model.EventCondition{{Signature: "Approval(address,address,uint256)"}},
		},
	}
	c := evmCandidate()
	c.DecodedEvent = &model.DecodedEvent{Signature: "Transfer(address,address,uint256)"}
	ok, _ := e.Evaluate(m, c)
	assert.False(t, ok)
}

func TestEvaluate_MalformedExpressionTreatedAsNonMatchAndLoggedOnce(t *testing.T) {
	e := NewEngine()
	m := model.Monitor{
		Name: "broken",
		MatchConditions: model.MatchConditions{
			Transactions: []model.TransactionCondition{{Status: model.TxStatusAny, Expression: "value >"}},
		},
	}
	ok, _ := e.Evaluate(m, evmCandidate())
	assert.False(t, ok)
	// A second evaluation must not panic or duplicate the parse attempt's
	// side effects; loggedBad suppresses the repeat log line.
	ok, _ = e.Evaluate(m, evmCandidate())
	assert.False(t, ok)
}

func TestEvaluate_StellarPositionalFunctionParams(t *testing.T) {
	e := NewEngine()
	m := model.Monitor{
		Name: "stellar-invoke",
		MatchConditions: model.MatchConditions{
			Functions: []model.FunctionCondition{{Signature: "transfer", Expression: `2 > 1000`}},
		},
	}
	c := model.MatchCandidate{
		Kind:               model.CandidateKindStellar,
		LedgerSequence:     42,
		StellarTransaction: &model.StellarTransaction{Hash: "abc"},
		DecodedFunction: &model.DecodedFunction{
			Signature:  "transfer",
			Positional: []interface{}{"GABC", "GXYZ", "5000"},
		},
	}
	ok, matched := e.Evaluate(m, c)
	assert.True(t, ok)
	assert.Equal(t, model.ConditionKindFunction, matched[0].Kind)
}
