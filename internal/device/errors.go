package device

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned by polled reads when the device answers 429.
// Pollers treat it as a skipped cycle, not a failure.
var ErrRateLimited = errors.New("device rate limited the request")

// GenericFailure is surfaced when a business failure carries no message.
const GenericFailure = "operation failed"

// CommunicationFailure is the user-facing text for transport failures.
const CommunicationFailure = "communication error"

// TransportError reports a network failure or a non-2xx response without a
// usable body.
type TransportError struct {
	Command Command
	Status  int // zero when no response was received
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: device returned status %d", e.Command, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BusinessError reports success:false (or a missing success field) in an
// otherwise well-formed response.
type BusinessError struct {
	Command Command
	Message string
}

func (e *BusinessError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = GenericFailure
	}
	return fmt.Sprintf("%s: %s", e.Command, msg)
}

// ValidationError reports a local precondition failure. The request was not sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UserMessage maps an error to the text shown to the operator.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var biz *BusinessError
	if errors.As(err, &biz) {
		if biz.Message == "" {
			return GenericFailure
		}
		return biz.Message
	}
	var val *ValidationError
	if errors.As(err, &val) {
		return val.Error()
	}
	var tr *TransportError
	if errors.As(err, &tr) {
		return CommunicationFailure
	}
	return err.Error()
}
