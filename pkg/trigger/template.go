// Package trigger implements TriggerDispatcher (spec.md §4.7): rendering
// `${identifier}` templates from a MonitorMatch's fields and dispatching
// the rendered payload to each of the monitor's configured triggers.
package trigger

import (
	"fmt"
	"regexp"

	"github.com/blockwatch/sentinel/internal/model"
)

var placeholder = regexp.MustCompile(`\$\{([a-zA-Z0-9_]+)\}`)

// Vars is the variable set available to a MonitorMatch's templates.
type Vars map[string]string

// BuildVars derives the `${identifier}` variable set from a MonitorMatch
// per spec.md §4.7: common transaction-hash/monitor-name/signature
// variables for every chain kind, plus EVM-only transaction from/to/value
// and named parameter variables, or Stellar-only positional parameter
// variables.
func BuildVars(match model.MonitorMatch) Vars {
	v := Vars{
		"monitor_name":      match.MonitorName,
		"transaction_hash":  match.Candidate.TxHash(),
	}

	c := match.Candidate
	if c.EVMTransaction != nil {
		v["transaction_from"] = c.EVMTransaction.From
		v["transaction_to"] = c.EVMTransaction.To
		v["transaction_value"] = c.EVMTransaction.Value
	}

	if c.DecodedFunction != nil {
		addDecodedVars(v, "function", c.DecodedFunction.Index, c.DecodedFunction.Signature, c.DecodedFunction.Params, c.DecodedFunction.Positional)
	}
	if c.DecodedEvent != nil {
		addDecodedVars(v, "event", c.DecodedEvent.Index, c.DecodedEvent.Signature, c.DecodedEvent.Params, c.DecodedEvent.Positional)
	}

	return v
}

func addDecodedVars(v Vars, prefix string, index int, signature string, named map[string]interface{}, positional []interface{}) {
	v[fmt.Sprintf("%s_%d_signature", prefix, index)] = signature
	for name, val := range named {
		v[fmt.Sprintf("%s_%d_%s", prefix, index, name)] = stringify(val)
	}
	for i, val := range positional {
		v[fmt.Sprintf("%s_%d_%d", prefix, index, i)] = stringify(val)
	}
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Render substitutes every `${identifier}` occurrence in tmpl with its
// value from vars. An identifier absent from vars expands to the empty
// string rather than aborting (spec.md §4.7).
func Render(tmpl string, vars Vars) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := placeholder.FindStringSubmatch(match)[1]
		return vars[name]
	})
}
