package expr

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Resolver looks up an identifier's runtime value against a MatchCandidate's
// fields. The second return is false for unresolved identifiers, which
// always makes the enclosing comparison evaluate to false (spec.md §4.6.3).
type Resolver func(name string) (interface{}, bool)

// Eval evaluates node against resolve. It never returns an error: an
// unresolved identifier or a type mismatch between a literal and its
// resolved value simply makes that comparison false, never aborts
// evaluation of the whole tree.
func Eval(node Node, resolve Resolver) bool {
	switch n := node.(type) {
	case *BinaryExpr:
		left := Eval(n.Left, resolve)
		if n.Op == OpAnd {
			return left && Eval(n.Right, resolve)
		}
		return left || Eval(n.Right, resolve)
	case *Comparison:
		return evalComparison(n, resolve)
	default:
		return false
	}
}

func evalComparison(c *Comparison, resolve Resolver) bool {
	val, ok := resolve(c.Ident)
	if !ok {
		return false
	}

	switch c.Literal.Kind {
	case LiteralInt:
		v, ok := toBigInt(val)
		if !ok {
			return false
		}
		return compareBigInt(v, c.Literal.Int, c.Op)
	case LiteralBool:
		v, ok := toBool(val)
		if !ok {
			return false
		}
		switch c.Op {
		case OpEq:
			return v == c.Literal.Bool
		case OpNe:
			return v != c.Literal.Bool
		default:
			return false
		}
	case LiteralString:
		v, ok := toString(val)
		if !ok {
			return false
		}
		return compareString(v, c.Literal.Str, c.Op)
	default:
		return false
	}
}

func compareBigInt(a, b *big.Int, op CompareOp) bool {
	cmp := a.Cmp(b)
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	default:
		return false
	}
}

// isHexAddress reports whether s looks like a 0x-prefixed hex string, the
// shape of EVM addresses and hashes, which compare case-insensitively.
func isHexAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") || len(s) < 3 {
		return false
	}
	for _, r := range s[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

func compareString(a, b string, op CompareOp) bool {
	if isHexAddress(a) && isHexAddress(b) {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpContains:
		return strings.Contains(a, b)
	case OpStartsWith:
		return strings.HasPrefix(a, b)
	case OpEndsWith:
		return strings.HasSuffix(a, b)
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	default:
		return false
	}
}

// toBigInt coerces a resolved candidate field into an arbitrary-precision
// integer. Decoded numeric fields travel as decimal strings (spec.md §4.5)
// but raw Go numeric kinds are accepted too, for robustness against future
// decoder changes.
func toBigInt(v interface{}) (*big.Int, bool) {
	switch val := v.(type) {
	case *big.Int:
		return val, true
	case string:
		n, ok := new(big.Int).SetString(strings.TrimSpace(val), 0)
		return n, ok
	case int:
		return big.NewInt(int64(val)), true
	case int64:
		return big.NewInt(val), true
	case uint64:
		return new(big.Int).SetUint64(val), true
	case float64:
		// Rejects fractional JSON numbers; an integer-valued float64 from a
		// json.Unmarshal'd interface{} is still exact for our ranges.
		if val != float64(int64(val)) {
			return nil, false
		}
		return big.NewInt(int64(val)), true
	default:
		return nil, false
	}
}

func toBool(v interface{}) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

func toString(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	default:
		return "", false
	}
}
