package model

// TxStatus is the status filter for a transaction predicate.
type TxStatus string

const (
	TxStatusSuccess TxStatus = "Success"
	TxStatusFailure TxStatus = "Failure"
	TxStatusAny     TxStatus = "Any"
)

// TransactionCondition matches a transaction by status and, optionally,
// an expression over transaction fields.
type TransactionCondition struct {
	Status     TxStatus `json:"status"`
	Expression string   `json:"expression,omitempty"`
}

// FunctionCondition matches a decoded contract function call by ABI
// signature and, optionally, an expression over named/indexed parameters.
type FunctionCondition struct {
	Signature  string `json:"signature"`
	Expression string `json:"expression,omitempty"`
}

// EventCondition matches a decoded contract event by ABI signature and,
// optionally, an expression over named/indexed parameters.
type EventCondition struct {
	Signature  string `json:"signature"`
	Expression string `json:"expression,omitempty"`
}

// MatchConditions groups a monitor's predicates by kind, per spec.md §3.
type MatchConditions struct {
	Transactions []TransactionCondition `json:"transactions,omitempty"`
	Functions    []FunctionCondition    `json:"functions,omitempty"`
	Events       []EventCondition       `json:"events,omitempty"`
}

// MonitoredAddress is a watched contract/account plus its optional ABI
// (EVM only; Stellar contracts carry no ABI).
type MonitoredAddress struct {
	Address string `json:"address"`
	ABI     string `json:"abi,omitempty"`
}

// TriggerConditionScript is an external filter-script reference evaluated
// after predicate matching, in declared order.
type TriggerConditionScript struct {
	Path      string   `json:"path"`
	TimeoutMS int64    `json:"timeout_ms"`
	Args      []string `json:"args,omitempty"`
}

// Monitor is an immutable, post-startup configuration entity describing
// one set of match conditions and the triggers to fire when they match.
type Monitor struct {
	Name             string                    `json:"name"`
	Networks         []string                  `json:"networks"`
	Paused           bool                      `json:"paused"`
	Addresses        []MonitoredAddress        `json:"addresses"`
	MatchConditions  MatchConditions           `json:"match_conditions"`
	TriggerConditions []TriggerConditionScript `json:"trigger_conditions,omitempty"`
	Triggers         []string                  `json:"triggers"`
}

// TargetsNetwork reports whether the monitor is configured to watch slug.
func (m Monitor) TargetsNetwork(slug string) bool {
	for _, s := range m.Networks {
		if s == slug {
			return true
		}
	}
	return false
}

// HasAddresses reports whether the monitor restricts matches to a set of
// addresses (as opposed to matching candidates from any address).
func (m Monitor) HasAddresses() bool {
	return len(m.Addresses) > 0
}
