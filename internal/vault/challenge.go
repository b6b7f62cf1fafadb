package vault

import (
	"context"
	"time"

	"github.com/illarion/credvault/internal/biometric"
)

// DefaultBusyTimeout bounds how long a new challenge waits for an
// earlier one to unwind after cancelling it
const DefaultBusyTimeout = 2 * time.Second

// challenge is the single outstanding biometric prompt
type challenge struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// acquireChallenge cancels any outstanding challenge, waits for it to
// finish and claims the slot. The returned release must be called once
// the caller has finished processing the result.
func (v *Vault) acquireChallenge(ctx context.Context) (context.Context, func(), error) {
	timer := time.NewTimer(v.busyTimeout)
	defer timer.Stop()

	for {
		v.chMu.Lock()
		prev := v.active
		if prev == nil {
			cctx, cancel := context.WithCancel(ctx)
			c := &challenge{cancel: cancel, done: make(chan struct{})}
			v.active = c
			v.chMu.Unlock()

			release := func() {
				cancel()
				v.chMu.Lock()
				if v.active == c {
					v.active = nil
				}
				v.chMu.Unlock()
				close(c.done)
			}
			return cctx, release, nil
		}
		v.chMu.Unlock()

		prev.cancel()
		select {
		case <-prev.done:
		case <-timer.C:
			return nil, nil, newError(KindBusy, CodeBusy, "another biometric challenge is still running", nil)
		case <-ctx.Done():
			return nil, nil, newError(KindCanceled, CodeCanceled, "biometric challenge canceled", ctx.Err())
		}
	}
}

// cancelChallenge cancels the outstanding challenge, if any
func (v *Vault) cancelChallenge() {
	v.chMu.Lock()
	defer v.chMu.Unlock()
	if v.active != nil {
		v.active.cancel()
	}
}

// runChallenge shows the prompt and returns the result. A challenge whose
// context was cancelled is always reported as canceled.
func (v *Vault) runChallenge(ctx context.Context, prompt biometric.Prompt) (biometric.Result, error) {
	start := time.Now()
	res, err := v.auth.Challenge(ctx, prompt)
	if ctx.Err() != nil {
		res = biometric.Result{Outcome: biometric.OutcomeCanceled, Code: "canceled", Message: ctx.Err().Error()}
		err = nil
	}

	outcome := res.Outcome.String()
	if err != nil {
		outcome = biometric.OutcomeError.String()
	}
	v.metrics.RecordChallenge(outcome, time.Since(start))

	return res, err
}
