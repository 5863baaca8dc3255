package model

// CandidateKind discriminates the chain family a MatchCandidate was
// decoded from, determining which fields of the union are populated.
type CandidateKind string

const (
	CandidateKindEVM     CandidateKind = "evm"
	CandidateKindStellar CandidateKind = "stellar"
)

// EVMTransaction is the transaction-level view of an EVM MatchCandidate.
type EVMTransaction struct {
	Hash     string `json:"hash"`
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`    // decimal string, arbitrary precision
	Gas      uint64 `json:"gas"`
	GasPrice string `json:"gas_price"` // decimal string, arbitrary precision
	Status   TxStatus `json:"status"`
}

// DecodedFunction is a decoded EVM function call or Stellar host-function
// invocation.
type DecodedFunction struct {
	Signature string                 `json:"signature"`
	Index     int                    `json:"index"`
	Params    map[string]interface{} `json:"params,omitempty"`           // EVM: name -> value
	Positional []interface{}         `json:"positional_params,omitempty"` // Stellar: index -> value
}

// DecodedEvent is a decoded EVM log or Stellar contract event.
type DecodedEvent struct {
	Signature  string                 `json:"signature"`
	Index      int                    `json:"index"`
	Params     map[string]interface{} `json:"params,omitempty"`
	Positional []interface{}          `json:"positional_params,omitempty"`
}

// StellarTransaction is the transaction-level view of a Stellar
// MatchCandidate.
type StellarTransaction struct {
	Hash          string   `json:"hash"`
	SourceAccount string   `json:"source_account"`
	Fee           string   `json:"fee"`
	Status        TxStatus `json:"status"`
}

// MatchCandidate is the internal, per-block normalized record passed to
// FilterEngine: one transaction plus at most one decoded function call or
// event (spec.md §3, GLOSSARY).
type MatchCandidate struct {
	Kind CandidateKind `json:"kind"`

	BlockNumber     uint64 `json:"block_number,omitempty"`
	LedgerSequence  uint64 `json:"ledger_sequence,omitempty"`

	EVMTransaction     *EVMTransaction     `json:"evm_transaction,omitempty"`
	StellarTransaction *StellarTransaction `json:"stellar_transaction,omitempty"`

	DecodedFunction *DecodedFunction `json:"decoded_function,omitempty"`
	DecodedEvent    *DecodedEvent    `json:"decoded_event,omitempty"`

	// Address is the contract/account this candidate is associated with,
	// used by FilterEngine's address-membership check (spec.md §4.6.1).
	Address string `json:"address,omitempty"`
}

// Height returns the candidate's block/ledger height uniformly.
func (c MatchCandidate) Height() uint64 {
	if c.Kind == CandidateKindStellar {
		return c.LedgerSequence
	}
	return c.BlockNumber
}

// TxHash returns the candidate's transaction hash uniformly.
func (c MatchCandidate) TxHash() string {
	if c.EVMTransaction != nil {
		return c.EVMTransaction.Hash
	}
	if c.StellarTransaction != nil {
		return c.StellarTransaction.Hash
	}
	return ""
}

// TxStatusValue returns the candidate's transaction status uniformly.
func (c MatchCandidate) TxStatusValue() TxStatus {
	if c.EVMTransaction != nil {
		return c.EVMTransaction.Status
	}
	if c.StellarTransaction != nil {
		return c.StellarTransaction.Status
	}
	return TxStatusAny
}
