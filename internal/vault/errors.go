package vault

import (
	"errors"
	"fmt"
)

// Kind classifies vault errors
type Kind int

const (
	KindUndefined Kind = iota
	KindNotUnlocked
	KindWrongFactor
	KindTooManyAttempts
	KindDecryptFailed
	KindEncryptInitFailed
	KindKeyInvalidated
	KindBiometricUnavailable
	KindBusy
	KindCanceled
	KindContextUnavailable
	KindStorageError
	KindNotSetUp
)

func (k Kind) String() string {
	switch k {
	case KindNotUnlocked:
		return "not unlocked"
	case KindWrongFactor:
		return "wrong factor"
	case KindTooManyAttempts:
		return "too many attempts"
	case KindDecryptFailed:
		return "decrypt failed"
	case KindEncryptInitFailed:
		return "encrypt init failed"
	case KindKeyInvalidated:
		return "key invalidated"
	case KindBiometricUnavailable:
		return "biometric unavailable"
	case KindBusy:
		return "busy"
	case KindCanceled:
		return "canceled"
	case KindContextUnavailable:
		return "context unavailable"
	case KindStorageError:
		return "storage error"
	case KindNotSetUp:
		return "not set up"
	default:
		return "undefined"
	}
}

// Stable error codes reported to callers
const (
	CodeUndefined          = "-1"
	CodeNoneEnrolled       = "6"
	CodePINTooMany         = "20"
	CodePINWrong           = "21"
	CodePINEncryptInit     = "22"
	CodePINDecrypt         = "23"
	CodePINNotSetUp        = "24"
	CodeBusy               = "30"
	CodeBiometricWrong     = "31"
	CodeCanceled           = "32"
	CodeBiometricEncrypt   = "33"
	CodeBiometricDecrypt   = "34"
	CodeBiometricTooMany   = "35"
	CodeNotSupported       = "36"
	CodeBiometricNotSetUp  = "37"
	CodeNotGranted         = "38"
	CodeNotSecured         = "39"
	CodeNotUnlocked        = "40"
	CodeKeyInvalidated     = "50"
	CodeStorage            = "60"
	CodeContextUnavailable = "100"
)

// Error is returned by every Vault operation. SubCode carries the
// platform detail of a biometric result when there is one.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	SubCode string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (code %s): %v", msg, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (code %s)", msg, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, and on Code when the target sets one
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is
var (
	ErrNotUnlocked          = &Error{Kind: KindNotUnlocked}
	ErrWrongFactor          = &Error{Kind: KindWrongFactor}
	ErrTooManyAttempts      = &Error{Kind: KindTooManyAttempts}
	ErrDecryptFailed        = &Error{Kind: KindDecryptFailed}
	ErrEncryptInitFailed    = &Error{Kind: KindEncryptInitFailed}
	ErrKeyInvalidated       = &Error{Kind: KindKeyInvalidated}
	ErrBiometricUnavailable = &Error{Kind: KindBiometricUnavailable}
	ErrBusy                 = &Error{Kind: KindBusy}
	ErrCanceled             = &Error{Kind: KindCanceled}
	ErrContextUnavailable   = &Error{Kind: KindContextUnavailable}
	ErrStorage              = &Error{Kind: KindStorageError}
	ErrNotSetUp             = &Error{Kind: KindNotSetUp}
)

// KindOf returns the Kind of err, or KindUndefined
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUndefined
}

// CodeOf returns the stable code of err, or CodeUndefined
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUndefined
}

func newError(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: cause}
}

func storageError(cause error) *Error {
	return newError(KindStorageError, CodeStorage, "vault storage failed", cause)
}

func undefinedError(message string, cause error) *Error {
	return newError(KindUndefined, CodeUndefined, message, cause)
}
