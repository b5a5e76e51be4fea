package entity

import "time"

// Outcome classifies a verification attempt.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeReplayed Outcome = "replayed"
	OutcomeMissing  Outcome = "missing"
)

// VerifyAttempt is the audit record of one verification attempt.
type VerifyAttempt struct {
	ID         string
	Outcome    Outcome
	Method     string
	Path       string
	RemoteAddr string
	At         time.Time
}
