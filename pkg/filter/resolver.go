package filter

import (
	"strconv"

	"github.com/blockwatch/sentinel/internal/model"
	"github.com/blockwatch/sentinel/pkg/filter/expr"
)

// transactionResolver exposes a MatchCandidate's transaction-level fields
// to an expression.transactions[].expression predicate (spec.md §4.6.3).
func transactionResolver(c model.MatchCandidate) expr.Resolver {
	return func(name string) (interface{}, bool) {
		switch {
		case c.EVMTransaction != nil:
			tx := c.EVMTransaction
			switch name {
			case "hash":
				return tx.Hash, true
			case "from":
				return tx.From, true
			case "to":
				return tx.To, true
			case "value":
				return tx.Value, true
			case "gas":
				return strconv.FormatUint(tx.Gas, 10), true
			case "gas_price":
				return tx.GasPrice, true
			case "status":
				return string(tx.Status), true
			default:
				return nil, false
			}
		case c.StellarTransaction != nil:
			tx := c.StellarTransaction
			switch name {
			case "hash":
				return tx.Hash, true
			case "source_account":
				return tx.SourceAccount, true
			case "fee":
				return tx.Fee, true
			case "status":
				return string(tx.Status), true
			default:
				return nil, false
			}
		default:
			return nil, false
		}
	}
}

// namedParamResolver exposes a decoded EVM function/event's named ABI
// parameters.
func namedParamResolver(params map[string]interface{}) expr.Resolver {
	return func(name string) (interface{}, bool) {
		v, ok := params[name]
		return v, ok
	}
}

// positionalParamResolver exposes a decoded Stellar function/event's
// positional parameters, addressed by their zero-based index as a string
// identifier ("0", "1", ...), since Stellar contract ABIs carry no
// parameter names (spec.md §4.1, §4.6.3).
func positionalParamResolver(args []interface{}) expr.Resolver {
	return func(name string) (interface{}, bool) {
		idx, err := strconv.Atoi(name)
		if err != nil || idx < 0 || idx >= len(args) {
			return nil, false
		}
		return args[idx], true
	}
}
