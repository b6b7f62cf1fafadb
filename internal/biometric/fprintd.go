package biometric

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// fprintd verify result names
const (
	VerifyMatch        = "verify-match"
	VerifyNoMatch      = "verify-no-match"
	VerifyRetryScan    = "verify-retry-scan"
	VerifyDisconnected = "verify-disconnected"
	VerifyUnknownError = "verify-unknown-error"
)

// anyFinger lets fprintd accept any enrolled finger
const anyFinger = "any"

// VerifyStatus is one VerifyStatus signal. Results with Done false are
// retry hints; the final result has Done set.
type VerifyStatus struct {
	Result string
	Done   bool
}

// Device is one fprintd reader. Verification requires a claim.
type Device interface {
	Name(ctx context.Context) (string, error)
	ListEnrolledFingers(ctx context.Context, user string) ([]string, error)
	Claim(ctx context.Context, user string) error
	Release(ctx context.Context) error
	// VerifyStart subscribes to VerifyStatus and starts verification
	VerifyStart(ctx context.Context, finger string) (<-chan VerifyStatus, error)
	VerifyStop(ctx context.Context) error
	Close() error
}

// DeviceOpener connects to the default reader
type DeviceOpener func(ctx context.Context) (Device, error)

// Fprintd authenticates through the fprintd D-Bus service
type Fprintd struct {
	user   string
	finger string
	out    io.Writer
	open   DeviceOpener
	now    func() time.Time
}

// FprintdOption configures Fprintd
type FprintdOption func(*Fprintd)

// WithFinger restricts verification to one finger, e.g. "right-index-finger"
func WithFinger(finger string) FprintdOption {
	return func(f *Fprintd) { f.finger = finger }
}

// WithPromptWriter sets where prompt text is written (default os.Stderr)
func WithPromptWriter(w io.Writer) FprintdOption {
	return func(f *Fprintd) { f.out = w }
}

// WithDeviceOpener replaces the system bus connection
func WithDeviceOpener(open DeviceOpener) FprintdOption {
	return func(f *Fprintd) { f.open = open }
}

// WithNow replaces time.Now
func WithNow(now func() time.Time) FprintdOption {
	return func(f *Fprintd) { f.now = now }
}

// NewFprintd returns an authenticator for user
func NewFprintd(user string, opts ...FprintdOption) *Fprintd {
	f := &Fprintd{
		user: user,
		out:  os.Stderr,
		open: OpenSystemDevice,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// enrollment is the reader name and the user's enrolled fingers
type enrollment struct {
	device  string
	fingers []string
}

func (f *Fprintd) list(ctx context.Context) (*enrollment, error) {
	dev, err := f.open(ctx)
	if err != nil {
		return nil, err
	}
	defer dev.Close()

	name, err := dev.Name(ctx)
	if err != nil {
		return nil, err
	}
	fingers, err := dev.ListEnrolledFingers(ctx, f.user)
	if err != nil {
		return nil, err
	}
	if len(fingers) == 0 {
		return nil, ErrNoneEnrolled
	}
	sort.Strings(fingers)

	return &enrollment{device: name, fingers: fingers}, nil
}

// Availability checks that a reader exists and the user has enrolled fingers
func (f *Fprintd) Availability(ctx context.Context) error {
	_, err := f.list(ctx)
	return err
}

// EnrollmentID hashes the reader name and the sorted enrolled fingers.
// fprintd does not expose template identity, so replacing a finger's
// print under the same name is not detected.
func (f *Fprintd) EnrollmentID(ctx context.Context) (string, error) {
	e, err := f.list(ctx)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(e.device))
	for _, finger := range e.fingers {
		h.Write([]byte{0})
		h.Write([]byte(finger))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Challenge claims the reader, runs one verification and maps the final
// VerifyStatus result to an Outcome. Canceling ctx stops the verification.
func (f *Fprintd) Challenge(ctx context.Context, prompt Prompt) (Result, error) {
	dev, err := f.open(ctx)
	if err != nil {
		return Result{}, err
	}
	defer dev.Close()

	if err := dev.Claim(ctx, f.user); err != nil {
		return Result{}, fmt.Errorf("failed to claim reader: %w", err)
	}
	defer func() {
		rctx, cancel := cleanupContext()
		defer cancel()
		dev.Release(rctx)
	}()

	finger := f.finger
	if finger == "" {
		finger = anyFinger
	}
	statuses, err := dev.VerifyStart(ctx, finger)
	if err != nil {
		return Result{}, fmt.Errorf("failed to start verification: %w", err)
	}
	f.showPrompt(prompt)

	for {
		select {
		case <-ctx.Done():
			stop(dev)
			return Result{Outcome: OutcomeCanceled, Code: "canceled", Message: ctx.Err().Error()}, nil

		case st, ok := <-statuses:
			if !ok {
				return Result{Outcome: OutcomeError, Code: VerifyDisconnected, Message: "fprintd connection closed"}, nil
			}
			if !st.Done {
				f.showRetry(st.Result)
				continue
			}
			stop(dev)
			return f.result(st.Result), nil
		}
	}
}

func (f *Fprintd) result(code string) Result {
	switch code {
	case VerifyMatch:
		return Result{Outcome: OutcomeSuccess, Code: code, AuthenticatedAt: f.now()}
	case VerifyNoMatch:
		return Result{Outcome: OutcomeFailed, Code: code, Message: "fingerprint not recognized"}
	default:
		return Result{Outcome: OutcomeError, Code: code, Message: "fingerprint reader error"}
	}
}

// stop ends a verification; fprintd requires it even after a final result
func stop(dev Device) {
	ctx, cancel := cleanupContext()
	defer cancel()
	dev.VerifyStop(ctx)
}

func cleanupContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Second)
}

func (f *Fprintd) showPrompt(p Prompt) {
	if f.out == nil {
		return
	}
	for _, line := range []string{p.Title, p.Subtitle, p.Description} {
		if line != "" {
			fmt.Fprintln(f.out, line)
		}
	}
	if p.CancelText != "" {
		fmt.Fprintf(f.out, "(%s: Ctrl+C)\n", p.CancelText)
	}
}

func (f *Fprintd) showRetry(code string) {
	if f.out == nil {
		return
	}
	switch code {
	case "verify-swipe-too-short":
		fmt.Fprintln(f.out, "Swipe too short, try again")
	case "verify-finger-not-centered":
		fmt.Fprintln(f.out, "Finger not centered, try again")
	case "verify-remove-and-retry":
		fmt.Fprintln(f.out, "Remove your finger and try again")
	default:
		fmt.Fprintln(f.out, "Try again")
	}
}
