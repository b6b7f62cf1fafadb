package biometric

import (
	"context"
	"errors"
	"time"
)

// Availability failures
var (
	ErrNotSupported = errors.New("biometric hardware not supported")
	ErrNoneEnrolled = errors.New("no biometrics enrolled")
	ErrNotGranted   = errors.New("biometric permission not granted")
	ErrNotSecured   = errors.New("device not secured")
)

// Outcome of a biometric challenge
type Outcome int

const (
	// OutcomeSuccess means the presented biometric matched.
	OutcomeSuccess Outcome = iota
	// OutcomeFailed means a biometric was read and did not match.
	OutcomeFailed
	// OutcomeError means the sensor or the service reported an error.
	OutcomeError
	// OutcomeCanceled means the user or the caller aborted the prompt.
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeError:
		return "error"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Prompt is the text shown while waiting for the user
type Prompt struct {
	Title       string
	Subtitle    string
	Description string
	CancelText  string
}

// Result of a challenge. Code and Message carry the platform detail;
// AuthenticatedAt is set only on success.
type Result struct {
	Outcome         Outcome
	Code            string
	Message         string
	AuthenticatedAt time.Time
}

// Authenticator presents biometric challenges to the user.
type Authenticator interface {
	// Availability returns nil when a challenge can be shown, otherwise
	// one of ErrNotSupported, ErrNoneEnrolled, ErrNotGranted, ErrNotSecured.
	Availability(ctx context.Context) error
	// Challenge blocks until the user responds or ctx is done.
	Challenge(ctx context.Context, prompt Prompt) (Result, error)
}

// Unsupported is the authenticator for hosts without biometric hardware
type Unsupported struct{}

func (Unsupported) Availability(context.Context) error { return ErrNotSupported }

func (Unsupported) Challenge(context.Context, Prompt) (Result, error) {
	return Result{}, ErrNotSupported
}

func (Unsupported) EnrollmentID(context.Context) (string, error) { return "", ErrNotSupported }
