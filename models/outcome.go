package models

// BrandState tracks a single brand through one orchestration run.
type BrandState string

const (
	StatePending     BrandState = "PENDING"
	StateURLResolved BrandState = "URL_RESOLVED"
	StateFetched     BrandState = "FETCHED"
	StateParsed      BrandState = "PARSED"
	StatePersisted   BrandState = "PERSISTED"
	StateEmpty       BrandState = "EMPTY"
	StateFailed      BrandState = "FAILED"
)

// Terminal reports whether no further transition is allowed.
func (s BrandState) Terminal() bool {
	return s == StatePersisted || s == StateEmpty || s == StateFailed
}

var transitions = map[BrandState][]BrandState{
	StatePending:     {StateURLResolved},
	StateURLResolved: {StateFetched, StateFailed},
	StateFetched:     {StateParsed, StateFailed},
	StateParsed:      {StatePersisted, StateEmpty, StateFailed},
}

// CanTransition reports whether next is reachable from s in one step.
func (s BrandState) CanTransition(next BrandState) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// OutcomeStatus is the caller-facing summary of a brand outcome.
type OutcomeStatus string

const (
	StatusSuccess OutcomeStatus = "SUCCESS"
	StatusEmpty   OutcomeStatus = "EMPTY"
	StatusFailed  OutcomeStatus = "FAILED"
)

// FailureKind classifies why a brand failed.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureTimeout     FailureKind = "TIMEOUT"
	FailureTransport   FailureKind = "TRANSPORT"
	FailureHTTPStatus  FailureKind = "HTTP_STATUS"
	FailureParse       FailureKind = "PARSE"
	FailurePersistence FailureKind = "PERSISTENCE"
)

// BrandOutcome is the per-brand result of an orchestration run.
type BrandOutcome struct {
	RunID      string          `json:"run_id"`
	Brand      string          `json:"brand"`
	URL        string          `json:"url"`
	State      BrandState      `json:"state"`
	Status     OutcomeStatus   `json:"status"`
	Count      int             `json:"count"`
	Failure    FailureKind     `json:"failure,omitempty"`
	Detail     string          `json:"detail,omitempty"`
	OutOfStock []ProductRecord `json:"out_of_stock"`
	QueryError string          `json:"query_error,omitempty"`
}
