package model

// ConditionKind names which predicate group fired for a MonitorMatch.
type ConditionKind string

const (
	ConditionKindTransaction ConditionKind = "transaction"
	ConditionKindFunction    ConditionKind = "function"
	ConditionKindEvent       ConditionKind = "event"
	ConditionKindNone        ConditionKind = "none"
)

// MatchedCondition records which predicate fired and at what index within
// the candidate's decoded elements, per spec.md §3 MonitorMatch.
type MatchedCondition struct {
	Kind  ConditionKind `json:"kind"`
	Index int           `json:"index"`
}

// MonitorMatch is a MatchCandidate that satisfied a monitor's predicates
// (GLOSSARY). It is transient, living only through one pipeline pass.
type MonitorMatch struct {
	MonitorName      string              `json:"monitor_name"`
	NetworkSlug      string              `json:"network_slug"`
	Candidate        MatchCandidate      `json:"match_candidate"`
	MatchedConditions []MatchedCondition `json:"matched_conditions"`
}
