package command

// Status is the outcome class of one dispatched command.
type Status string

const (
	StatusSuccess       Status = "success"
	StatusFailed        Status = "failed"
	StatusTargetMissing Status = "target_missing"
)

// Result is what a dispatched command reports back. Message is the single notice;
// Speech, when set, is spoken in addition.
type Result struct {
	Status  Status
	Message string
	Speech  string
}

// OK reports whether the command took effect.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Success builds a success result.
func Success(message string) Result {
	return Result{Status: StatusSuccess, Message: message}
}

// Missing builds a target-missing result.
func Missing(message string) Result {
	return Result{Status: StatusTargetMissing, Message: message}
}

// Failed builds a failure result.
func Failed(message string) Result {
	return Result{Status: StatusFailed, Message: message}
}

// WithSpeech attaches spoken feedback.
func (r Result) WithSpeech(text string) Result {
	r.Speech = text
	return r
}
