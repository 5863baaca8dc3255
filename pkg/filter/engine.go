// Package filter implements FilterEngine (spec.md §4.6): the decision of
// whether a MatchCandidate satisfies a Monitor's predicates, and if so,
// which MatchedCondition fired.
package filter

import (
	"strings"
	"sync"

	logger "github.com/rs/zerolog/log"

	"github.com/blockwatch/sentinel/internal/model"
	"github.com/blockwatch/sentinel/pkg/filter/expr"
)

var filterLog = logger.With().Str("component", "filter").Logger()

// Engine evaluates MatchCandidates against Monitor predicates. It is
// stateless apart from a once-per-monitor malformed-expression log
// suppressor, and is safe for concurrent use.
type Engine struct {
	loggedBad sync.Map // map[string]struct{}, key = monitor name
}

// NewEngine returns an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate reports whether candidate satisfies monitor's match_conditions,
// and if so, the list of MatchedConditions that fired, per spec.md §4.6:
//
//  1. Address membership: if the candidate carries an associated address
//     and the monitor restricts to a set of addresses, the address must be
//     a member.
//  2. Transaction predicates: if any are defined, at least one must match
//     (status filter plus optional expression); if none are defined, this
//     group trivially passes.
//  3. Function/event predicates: if any are defined, the candidate's own
//     decoded function or event must match one by signature (plus optional
//     expression); if none are defined, this group trivially passes.
//
// A candidate with neither group defined matches unconditionally (the
// "watch everything on this network" monitor).
func (e *Engine) Evaluate(m model.Monitor, c model.MatchCandidate) (bool, []model.MatchedCondition) {
	if !e.addressOK(m, c) {
		return false, nil
	}

	txOK, txMatched := e.evaluateTransactions(m, c)
	if !txOK {
		return false, nil
	}

	efDefined := len(m.MatchConditions.Functions) > 0 || len(m.MatchConditions.Events) > 0
	efOK, efMatched := true, []model.MatchedCondition(nil)
	if efDefined {
		efOK, efMatched = e.evaluateFunctionsAndEvents(m, c)
	}
	if !efOK {
		return false, nil
	}

	var matched []model.MatchedCondition
	matched = append(matched, txMatched...)
	matched = append(matched, efMatched...)
	if len(matched) == 0 {
		matched = append(matched, model.MatchedCondition{Kind: model.ConditionKindNone})
	}
	return true, matched
}

// addressOK compares case-insensitively for EVM hex addresses and exactly
// for Stellar addresses, per spec.md §4.6.
func (e *Engine) addressOK(m model.Monitor, c model.MatchCandidate) bool {
	if !m.HasAddresses() || c.Address == "" {
		return true
	}
	for _, a := range m.Addresses {
		if c.Kind == model.CandidateKindStellar {
			if a.Address == c.Address {
				return true
			}
			continue
		}
		if strings.EqualFold(a.Address, c.Address) {
			return true
		}
	}
	return false
}

func (e *Engine) evaluateTransactions(m model.Monitor, c model.MatchCandidate) (bool, []model.MatchedCondition) {
	conds := m.MatchConditions.Transactions
	if len(conds) == 0 {
		return true, nil
	}
	for i, tc := range conds {
		if tc.Status != model.TxStatusAny && tc.Status != c.TxStatusValue() {
			continue
		}
		if tc.Expression == "" {
			return true, []model.MatchedCondition{{Kind: model.ConditionKindTransaction, Index: i}}
		}
		node, err := expr.Parse(tc.Expression)
		if err != nil {
			e.logBadExpression(m.Name, tc.Expression, err)
			continue
		}
		if expr.Eval(node, transactionResolver(c)) {
			return true, []model.MatchedCondition{{Kind: model.ConditionKindTransaction, Index: i}}
		}
	}
	return false, nil
}

func (e *Engine) evaluateFunctionsAndEvents(m model.Monitor, c model.MatchCandidate) (bool, []model.MatchedCondition) {
	if c.DecodedFunction != nil {
		for _, fc := range m.MatchConditions.Functions {
			if fc.Signature != c.DecodedFunction.Signature {
				continue
			}
			if e.exprMatchesOrTrivial(m.Name, fc.Expression, c.DecodedFunction) {
				return true, []model.MatchedCondition{{Kind: model.ConditionKindFunction, Index: c.DecodedFunction.Index}}
			}
		}
	}
	if c.DecodedEvent != nil {
		for _, ec := range m.MatchConditions.Events {
			if ec.Signature != c.DecodedEvent.Signature {
				continue
			}
			if e.exprMatchesOrTrivial(m.Name, ec.Expression, c.DecodedEvent) {
				return true, []model.MatchedCondition{{Kind: model.ConditionKindEvent, Index: c.DecodedEvent.Index}}
			}
		}
	}
	return false, nil
}

func (e *Engine) exprMatchesOrTrivial(monitorName, expression string, decoded interface{}) bool {
	if expression == "" {
		return true
	}
	node, err := expr.Parse(expression)
	if err != nil {
		e.logBadExpression(monitorName, expression, err)
		return false
	}

	var resolve expr.Resolver
	switch d := decoded.(type) {
	case *model.DecodedFunction:
		resolve = paramResolver(d.Params, d.Positional)
	case *model.DecodedEvent:
		resolve = paramResolver(d.Params, d.Positional)
	default:
		return false
	}
	return expr.Eval(node, resolve)
}

func paramResolver(named map[string]interface{}, positional []interface{}) expr.Resolver {
	if len(named) > 0 {
		return namedParamResolver(named)
	}
	return positionalParamResolver(positional)
}

func (e *Engine) logBadExpression(monitorName, expression string, cause error) {
	if _, loaded := e.loggedBad.LoadOrStore(monitorName, struct{}{}); loaded {
		return
	}
	err := &model.ExpressionError{Monitor: monitorName, Expression: expression, Cause: cause}
	filterLog.Error().Err(err).Msg("malformed predicate expression, treating as non-match")
}
