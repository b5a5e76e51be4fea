package event

// VerifyAttemptDestination is the default topic for verification audit events.
const VerifyAttemptDestination string = "otpgate_verify_attempt"

// VerifyAttemptMessage is published for every verification attempt.
type VerifyAttemptMessage struct {
	ID         string `json:"id"`
	Outcome    string `json:"outcome"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	RemoteAddr string `json:"remote_addr"`
	At         string `json:"at"`
}
