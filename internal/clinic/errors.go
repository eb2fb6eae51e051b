package clinic

import "errors"

// Rejection is a recoverable refusal of an engine operation. A rejected
// operation leaves money, reputation and the case untouched.
type Rejection struct {
	Code    string
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

// Rejections reported by the engine.
var (
	ErrNoCurrentCase        = &Rejection{Code: "NO_CURRENT_CASE", Message: "no current patient"}
	ErrInsufficientFunds    = &Rejection{Code: "INSUFFICIENT_FUNDS", Message: "not enough money to run the test"}
	ErrNoSelection          = &Rejection{Code: "NO_SELECTION", Message: "no diagnosis selected"}
	ErrQueueEmpty           = &Rejection{Code: "QUEUE_EMPTY", Message: "no customers waiting"}
	ErrPatientAlreadyActive = &Rejection{Code: "PATIENT_ALREADY_ACTIVE", Message: "a patient is already being seen"}
	ErrUnknownTest          = &Rejection{Code: "UNKNOWN_TEST", Message: "unknown test"}
	ErrTestUnavailable      = &Rejection{Code: "TEST_UNAVAILABLE", Message: "test not available for this species"}
	ErrAlreadyDiagnosed     = &Rejection{Code: "ALREADY_DIAGNOSED", Message: "patient has already been diagnosed"}
)

// AsRejection unwraps err to a Rejection.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// IsRejection reports whether err is a recoverable engine rejection.
func IsRejection(err error) bool {
	_, ok := AsRejection(err)
	return ok
}
