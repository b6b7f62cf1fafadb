package vault

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/illarion/credvault/internal/biometric"
	"github.com/illarion/credvault/internal/device"
	"github.com/illarion/credvault/internal/keystore"
	"github.com/illarion/credvault/internal/metrics"
	"github.com/illarion/credvault/internal/storage"
)

const testDeviceID = "4c4c4544004d3510804ec4c04f4d3232"

var testPrompt = biometric.Prompt{Title: "Unlock credvault"}

// fakeAuth is a scriptable authenticator. With results nil every
// challenge resolves immediately with result; otherwise it signals
// started and waits for a value on results or for cancellation.
type fakeAuth struct {
	mu       sync.Mutex
	availErr error
	result   biometric.Result
	results  chan biometric.Result
	// stubborn challenges ignore cancellation until unblock is closed
	stubborn bool
	unblock  chan struct{}
	started  chan struct{}
	calls    int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		result:  biometric.Result{Outcome: biometric.OutcomeSuccess, Code: "verify-match"},
		started: make(chan struct{}, 16),
	}
}

func (f *fakeAuth) Availability(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.availErr
}

func (f *fakeAuth) Challenge(ctx context.Context, _ biometric.Prompt) (biometric.Result, error) {
	f.mu.Lock()
	f.calls++
	res, results, stubborn, unblock := f.result, f.results, f.stubborn, f.unblock
	f.mu.Unlock()

	switch {
	case stubborn:
		f.started <- struct{}{}
		<-unblock
		return stamp(biometric.Result{Outcome: biometric.OutcomeSuccess}), nil
	case results == nil:
		return stamp(res), nil
	}

	f.started <- struct{}{}
	select {
	case r := <-results:
		return stamp(r), nil
	case <-ctx.Done():
		return biometric.Result{Outcome: biometric.OutcomeCanceled, Code: "canceled"}, nil
	}
}

func (f *fakeAuth) set(fn func(f *fakeAuth)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeAuth) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAuth) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(2 * time.Second):
		t.Fatal("challenge did not start")
	}
}

func stamp(r biometric.Result) biometric.Result {
	if r.Outcome == biometric.OutcomeSuccess && r.AuthenticatedAt.IsZero() {
		r.AuthenticatedAt = time.Now()
	}
	return r
}

type fakeEnrollment struct {
	mu sync.Mutex
	id string
}

func (e *fakeEnrollment) EnrollmentID(context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id, nil
}

func (e *fakeEnrollment) set(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.id = id
}

type testEnv struct {
	vault      *Vault
	store      storage.Store
	path       string
	auth       *fakeAuth
	enrollment *fakeEnrollment
	keys       *keystore.Keyring
	metrics    *metrics.Recorder
	clock      *testClock
}

// testClock is the key store's clock, shifted by advance
type testClock struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	keyring.MockInit()

	env := &testEnv{
		path:       filepath.Join(t.TempDir(), "vault.db"),
		auth:       newFakeAuth(),
		enrollment: &fakeEnrollment{id: "fingers-a"},
		metrics:    metrics.NewRecorder(),
		clock:      &testClock{},
	}
	env.keys = keystore.NewKeyring("test-vault", env.enrollment, keystore.WithClock(env.clock.now))
	env.open(t)
	return env
}

// open (re)creates the vault over the env's database file
func (env *testEnv) open(t *testing.T) {
	t.Helper()

	store, err := storage.OpenBolt(env.path)
	require.NoError(t, err)

	v, err := New(Options{
		Store:         store,
		Device:        device.Static(testDeviceID),
		Keys:          env.keys,
		Authenticator: env.auth,
		BusyTimeout:   200 * time.Millisecond,
		Metrics:       env.metrics,
	})
	require.NoError(t, err)

	env.store = store
	env.vault = v
	t.Cleanup(func() { v.Close() })
}

// withPIN sets code, saves cred and locks the vault
func (env *testEnv) withPIN(t *testing.T, cred Credential, code string) {
	t.Helper()
	require.NoError(t, env.vault.SetUnlockCode(code))
	_, err := env.vault.Save(cred)
	require.NoError(t, err)
	env.vault.Lock()
}

func (env *testEnv) status(t *testing.T) Status {
	t.Helper()
	s, err := env.vault.Status()
	require.NoError(t, err)
	return s
}

func (env *testEnv) state(t *testing.T) State {
	t.Helper()
	s, err := env.vault.State()
	require.NoError(t, err)
	return s
}

func codeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
