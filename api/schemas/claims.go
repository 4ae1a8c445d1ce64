// api/schemas/claims.go
package schemas

import "time"

// Outcome classifies what happened to a single reward control.
type Outcome string

const (
	// OutcomeClaimed means the control's text transitioned into the
	// already-granted vocabulary after activation. This is the only outcome
	// counted toward an account's claimed total.
	OutcomeClaimed Outcome = "claimed"
	// OutcomeAlreadyClaimed means the control already carried granted text
	// before any action was taken. The control is never activated.
	OutcomeAlreadyClaimed Outcome = "already_claimed"
	// OutcomeSkipped means the control was disabled at capture time.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the activation itself raised an error.
	OutcomeFailed Outcome = "failed"
	// OutcomeAmbiguous means the post-activation text neither changed nor
	// carried a success indicator. Not counted, not fatal.
	OutcomeAmbiguous Outcome = "ambiguous"
)

// ClaimAttempt records the pre/post snapshot pair for one considered control.
// The outcome is derived exclusively from this pair, never from the raw
// activation return status.
type ClaimAttempt struct {
	Selector string  `json:"selector"`
	PreText  string  `json:"pre_text"`
	PostText string  `json:"post_text,omitempty"`
	Outcome  Outcome `json:"outcome"`
	Error    string  `json:"error,omitempty"`
}

// AccountReport is the immutable result of one account's run.
type AccountReport struct {
	Account        string         `json:"account"`
	ClaimedCount   int            `json:"claimed_count"`
	Attempts       []ClaimAttempt `json:"attempts,omitempty"`
	OverallSuccess bool           `json:"overall_success"`
	FatalError     string         `json:"fatal_error,omitempty"`
}

// BatchResult aggregates the reports of one full pass over the account list.
// Reports always has one entry per submitted account, in submission order.
type BatchResult struct {
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	Reports      []AccountReport `json:"reports"`
	SuccessCount int             `json:"success_count"`
	FailureCount int             `json:"failure_count"`
}

// Tally recomputes the success/failure counters from the report list.
func (b *BatchResult) Tally() {
	b.SuccessCount = 0
	b.FailureCount = 0
	for _, r := range b.Reports {
		if r.OverallSuccess {
			b.SuccessCount++
		} else {
			b.FailureCount++
		}
	}
}
