package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/illarion/credvault/internal/biometric"
	"github.com/illarion/credvault/internal/crypto"
	"github.com/illarion/credvault/internal/device"
	"github.com/illarion/credvault/internal/keystore"
	"github.com/illarion/credvault/internal/metrics"
	"github.com/illarion/credvault/internal/storage"
)

// State of the vault
type State int

const (
	StateUninitialized State = iota
	StateLocked
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	default:
		return "uninitialized"
	}
}

// Credential is the stored secret
type Credential struct {
	Login    string
	Password string
}

// IsZero reports whether both fields are empty
func (c Credential) IsZero() bool {
	return c.Login == "" && c.Password == ""
}

// SaveResult lists the factors refreshed by Save and the ones whose
// sealed copy had to be removed because their key was not in the session
type SaveResult struct {
	Sealed  []Factor
	Dropped []Factor
}

// Status is a read-only summary of the vault
type Status struct {
	State              State
	Empty              bool
	PINConfigured      bool
	BiometryConfigured bool
	PINAttempts        int
	BiometryAttempts   int
	MaxAttempts        int
}

// Options configures a Vault
type Options struct {
	Store  storage.Store
	Device device.Identifier
	// Keys and Authenticator enable the biometric factor
	Keys          keystore.KeyStore
	Authenticator biometric.Authenticator
	MaxAttempts   int
	BusyTimeout   time.Duration
	Logger        *zerolog.Logger
	Metrics       *metrics.Recorder
}

// Vault gates one credential behind a PIN and a biometric factor
type Vault struct {
	mu       sync.Mutex
	store    storage.Store
	device   device.Identifier
	keys     keystore.KeyStore
	auth     biometric.Authenticator
	observer *keystore.ChangeObserver
	lockout  *Lockout
	log      zerolog.Logger
	metrics  *metrics.Recorder

	state    State
	session  session
	deviceID string
	// epoch changes on Lock and Clean so a challenge can tell it was overtaken
	epoch uint64

	busyTimeout time.Duration
	chMu        sync.Mutex
	active      *challenge
}

// New creates a vault. State is resolved lazily on first use.
func New(opts Options) (*Vault, error) {
	if opts.Store == nil {
		return nil, errors.New("vault: store is required")
	}
	if opts.Device == nil {
		return nil, errors.New("vault: device identifier is required")
	}

	v := &Vault{
		store:       opts.Store,
		device:      opts.Device,
		keys:        opts.Keys,
		auth:        opts.Authenticator,
		lockout:     NewLockout(opts.Store, opts.MaxAttempts),
		log:         zerolog.Nop(),
		metrics:     opts.Metrics,
		busyTimeout: opts.BusyTimeout,
	}
	if opts.Logger != nil {
		v.log = *opts.Logger
	}
	if v.auth == nil {
		v.auth = biometric.Unsupported{}
	}
	if v.busyTimeout <= 0 {
		v.busyTimeout = DefaultBusyTimeout
	}
	if v.keys != nil {
		v.observer = keystore.NewChangeObserver(v.keys)
	}

	return v, nil
}

// initializeLocked resolves the state on first use: Locked when data is
// persisted, Unlocked when empty. An unreadable store is cleaned.
func (v *Vault) initializeLocked() error {
	if v.state != StateUninitialized {
		return nil
	}

	empty, err := v.store.IsEmpty()
	if err == nil {
		if empty {
			v.state = StateUnlocked
		} else {
			v.state = StateLocked
		}
		v.metrics.SetUnlocked(v.state == StateUnlocked)
		return nil
	}

	v.log.Error().Err(err).Msg("vault check failed, cleaning")
	if err := v.cleanLocked(metrics.ReasonInitFailure); err != nil {
		return err
	}
	return nil
}

func (v *Vault) ensureUnlockedLocked() error {
	if err := v.initializeLocked(); err != nil {
		return err
	}
	if v.state != StateUnlocked {
		return newError(KindNotUnlocked, CodeNotUnlocked, "vault is locked", nil)
	}
	return nil
}

func (v *Vault) deviceIDLocked() (string, error) {
	if v.deviceID != "" {
		return v.deviceID, nil
	}
	id, err := v.device.DeviceID()
	if err != nil || id == "" {
		return "", newError(KindContextUnavailable, CodeContextUnavailable, "device identifier unavailable", err)
	}
	v.deviceID = id
	return id, nil
}

// State returns the current state
func (v *Vault) State() (State, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.initializeLocked(); err != nil {
		return v.state, err
	}
	return v.state, nil
}

// IsEmpty reports whether nothing is persisted
func (v *Vault) IsEmpty() (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.initializeLocked(); err != nil {
		return false, err
	}
	empty, err := v.store.IsEmpty()
	if err != nil {
		return false, storageError(err)
	}
	return empty, nil
}

// Save replaces the secret. Every configured factor that can be resealed
// from the session gets the new secret; the others lose their sealed copy.
// The PIN is resealed when the PIN key is in the session, the biometric
// copy while the last biometric challenge is still within the key's
// validity window. When no factor can be resealed Save fails with
// KindNotSetUp and the persisted copies are left untouched.
func (v *Vault) Save(cred Credential) (SaveResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var result SaveResult
	if err := v.ensureUnlockedLocked(); err != nil {
		return result, err
	}

	record, err := crypto.PackRecord(cred.Login, cred.Password)
	if err != nil {
		return result, undefinedError("credential cannot be stored", err)
	}
	defer crypto.ClearBytes(record)

	ctx := context.Background()
	var copies []sealedCopy
	var stale []Factor

	pinConfigured, err := v.configured(FactorPIN)
	if err != nil {
		return result, err
	}
	if pinConfigured {
		if v.session.hasPINKey() {
			key, err := v.session.openPINKey()
			if err != nil {
				return result, undefinedError("session unavailable", err)
			}
			c, err := encryptFactor(ctx, FactorPIN, pinFactor{key: key}, record)
			crypto.ClearBytes(key)
			if err != nil {
				return result, err
			}
			copies = append(copies, c)
		} else {
			stale = append(stale, FactorPIN)
		}
	}

	bioConfigured, err := v.configured(FactorBiometric)
	if err != nil {
		return result, err
	}
	if bioConfigured {
		sealed := false
		if v.keys != nil && v.session.hasBiometricAuth() {
			auth := keystore.Authorization{AuthenticatedAt: v.session.bioAuth}
			c, err := encryptFactor(ctx, FactorBiometric, biometricFactor{keys: v.keys, auth: auth}, record)
			switch {
			case err == nil:
				copies = append(copies, c)
				sealed = true
			case errors.Is(err, keystore.ErrNotAuthenticated), errors.Is(err, keystore.ErrKeyInvalidated):
			default:
				return result, err
			}
		}
		if !sealed {
			stale = append(stale, FactorBiometric)
		}
	}

	if len(copies) == 0 {
		return result, newError(KindNotSetUp, CodePINNotSetUp, "no unlock factor can protect the secret, set the unlock code first", nil)
	}

	for _, c := range copies {
		if err := v.writeCopy(c); err != nil {
			return result, err
		}
		result.Sealed = append(result.Sealed, c.factor)
	}
	for _, f := range stale {
		if err := v.dropFactor(f); err != nil {
			return result, err
		}
		result.Dropped = append(result.Dropped, f)
	}

	v.session.setSecret(append([]byte(nil), record...))

	v.log.Info().
		Int("sealed", len(result.Sealed)).
		Int("dropped", len(result.Dropped)).
		Msg("secret saved")
	return result, nil
}

// Read returns the secret. found is false when no secret was saved.
func (v *Vault) Read() (Credential, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.ensureUnlockedLocked(); err != nil {
		return Credential{}, false, err
	}
	return v.sessionCredentialLocked()
}

func (v *Vault) sessionCredentialLocked() (Credential, bool, error) {
	if !v.session.hasSecret() {
		return Credential{}, false, nil
	}
	record, err := v.session.openSecret()
	if err != nil {
		return Credential{}, false, undefinedError("session unavailable", err)
	}
	defer crypto.ClearBytes(record)

	login, password, err := crypto.UnpackRecord(record)
	if err != nil {
		return Credential{}, false, undefinedError("session corrupted", err)
	}
	cred := Credential{Login: login, Password: password}
	return cred, !cred.IsZero(), nil
}

// sessionRecordLocked returns the packed session secret, or an empty record
func (v *Vault) sessionRecordLocked() ([]byte, error) {
	if v.session.hasSecret() {
		record, err := v.session.openSecret()
		if err != nil {
			return nil, undefinedError("session unavailable", err)
		}
		return record, nil
	}
	record, err := crypto.PackRecord("", "")
	if err != nil {
		return nil, undefinedError("failed to pack record", err)
	}
	return record, nil
}

// SetUnlockCode seals the secret under code and resets the counters
func (v *Vault) SetUnlockCode(code string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.ensureUnlockedLocked(); err != nil {
		return err
	}

	deviceID, err := v.deviceIDLocked()
	if err != nil {
		return err
	}

	tag, err := crypto.DeriveVerificationTag(deviceID, []byte(code))
	if err != nil {
		return newError(KindEncryptInitFailed, CodePINEncryptInit, "failed to derive verification tag", err)
	}
	key := crypto.DeriveEncryptionKey(deviceID, []byte(code))
	defer crypto.ClearBytes(key)

	record, err := v.sessionRecordLocked()
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(record)

	if err := v.sealFactor(context.Background(), FactorPIN, pinFactor{key: key}, record); err != nil {
		return err
	}
	if err := v.store.Set(FieldCheckHash, []byte(tag)); err != nil {
		return storageError(err)
	}
	if err := v.lockout.RecordSuccess(); err != nil {
		return storageError(err)
	}

	v.session.setSecret(append([]byte(nil), record...))
	v.session.setPINKey(append([]byte(nil), key...))

	v.log.Info().Str("factor", FactorPIN.String()).Msg("unlock factor set")
	return nil
}

// UnlockByCode verifies code and unlocks. Reaching the attempt limit
// erases the vault.
func (v *Vault) UnlockByCode(code string) (Credential, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	cred, err := v.unlockByCodeLocked(code)
	v.recordUnlock(FactorPIN, err)
	return cred, err
}

func (v *Vault) unlockByCodeLocked(code string) (Credential, error) {
	if err := v.initializeLocked(); err != nil {
		return Credential{}, err
	}

	stored, err := v.store.Get(FieldCheckHash)
	if errors.Is(err, storage.ErrNotFound) {
		return Credential{}, newError(KindNotSetUp, CodePINNotSetUp, "unlock code is not set", nil)
	}
	if err != nil {
		return Credential{}, storageError(err)
	}

	deviceID, err := v.deviceIDLocked()
	if err != nil {
		return Credential{}, err
	}

	tag, err := crypto.DeriveVerificationTag(deviceID, []byte(code))
	if err != nil {
		return Credential{}, newError(KindEncryptInitFailed, CodePINEncryptInit, "failed to derive verification tag", err)
	}

	if !crypto.VerifyTag(string(stored), tag) {
		return Credential{}, v.recordFailureLocked(FactorPIN, "wrong unlock code")
	}

	key := crypto.DeriveEncryptionKey(deviceID, []byte(code))
	defer crypto.ClearBytes(key)

	record, err := v.openFactor(context.Background(), FactorPIN, pinFactor{key: key})
	if err != nil {
		return Credential{}, err
	}
	defer crypto.ClearBytes(record)

	if err := v.lockout.RecordSuccess(); err != nil {
		return Credential{}, storageError(err)
	}

	login, password, _ := crypto.UnpackRecord(record)
	v.session.setSecret(append([]byte(nil), record...))
	v.session.setPINKey(append([]byte(nil), key...))
	v.state = StateUnlocked
	v.metrics.SetUnlocked(true)

	v.log.Info().Str("factor", FactorPIN.String()).Msg("vault unlocked")
	return Credential{Login: login, Password: password}, nil
}

// recordFailureLocked counts a wrong factor. A PIN lockout erases the vault;
// a biometric lockout only blocks further biometric attempts.
func (v *Vault) recordFailureLocked(f Factor, message string) error {
	codes := f.codes()

	d, err := v.lockout.RecordFailure(f)
	if err != nil {
		return storageError(err)
	}

	v.log.Warn().
		Str("factor", f.String()).
		Int("attempts", d.Attempts).
		Int("remaining", d.Remaining).
		Msg("unlock attempt failed")

	if !d.LockedOut {
		return newError(KindWrongFactor, codes.wrong,
			fmt.Sprintf("%s, %d attempt(s) remaining", message, d.Remaining), nil)
	}

	v.metrics.RecordLockout(f.String())
	if f == FactorPIN {
		if err := v.cleanLocked(metrics.ReasonLockout); err != nil {
			return err
		}
		return newError(KindTooManyAttempts, codes.tooMany, "too many attempts, vault erased", nil)
	}
	return newError(KindTooManyAttempts, codes.tooMany, "too many attempts, biometric unlock disabled", nil)
}

// SetUnlockBiometry seals the secret under a fresh hardware key after a
// successful biometric challenge
func (v *Vault) SetUnlockBiometry(ctx context.Context, prompt biometric.Prompt) error {
	v.mu.Lock()
	if err := v.ensureUnlockedLocked(); err != nil {
		v.mu.Unlock()
		return err
	}
	if err := v.biometricAvailableLocked(ctx); err != nil {
		v.mu.Unlock()
		return err
	}

	// Regenerate so the new copy is bound to the current enrollment
	if err := v.keys.DeleteKey(VaultKey); err != nil {
		v.mu.Unlock()
		return newError(KindEncryptInitFailed, CodeBiometricEncrypt, "failed to reset biometric key", err)
	}
	if err := v.keys.GenerateKey(ctx, VaultKey); err != nil {
		v.mu.Unlock()
		return newError(KindEncryptInitFailed, CodeBiometricEncrypt, "failed to create biometric key", err)
	}
	// The previous copy was sealed under the deleted key
	if err := v.dropFactor(FactorBiometric); err != nil {
		v.mu.Unlock()
		return err
	}
	epoch := v.epoch
	v.mu.Unlock()

	cctx, release, err := v.acquireChallenge(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, err := v.runChallenge(cctx, prompt)

	v.mu.Lock()
	defer v.mu.Unlock()

	if err != nil {
		return newError(KindCanceled, CodeCanceled, "biometric challenge failed", err)
	}
	switch res.Outcome {
	case biometric.OutcomeSuccess:
	case biometric.OutcomeFailed:
		return &Error{Kind: KindWrongFactor, Code: CodeBiometricWrong, Message: "biometric not recognized", SubCode: res.Code}
	default:
		return &Error{Kind: KindCanceled, Code: CodeCanceled, Message: "biometric challenge canceled", SubCode: res.Code}
	}

	// Lock or Clean may have run while the prompt was shown
	if v.epoch != epoch || v.state != StateUnlocked {
		return newError(KindCanceled, CodeCanceled, "vault changed during the challenge", nil)
	}

	record, err := v.sessionRecordLocked()
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(record)

	auth := keystore.Authorization{AuthenticatedAt: res.AuthenticatedAt}
	if err := v.sealFactor(ctx, FactorBiometric, biometricFactor{keys: v.keys, auth: auth}, record); err != nil {
		return err
	}
	if err := v.lockout.RecordSuccess(); err != nil {
		return storageError(err)
	}
	if !v.session.hasSecret() {
		v.session.setSecret(append([]byte(nil), record...))
	}
	v.session.setBiometricAuth(res.AuthenticatedAt)

	v.log.Info().Str("factor", FactorBiometric.String()).Msg("unlock factor set")
	return nil
}

// UnlockByBiometry runs a biometric challenge and unlocks. Any failure
// after the prompt was shown relocks the vault.
func (v *Vault) UnlockByBiometry(ctx context.Context, prompt biometric.Prompt) (Credential, error) {
	cred, err := v.unlockByBiometry(ctx, prompt)
	v.recordUnlock(FactorBiometric, err)
	return cred, err
}

func (v *Vault) unlockByBiometry(ctx context.Context, prompt biometric.Prompt) (Credential, error) {
	v.mu.Lock()
	if err := v.biometricPrecheckLocked(ctx); err != nil {
		v.mu.Unlock()
		return Credential{}, err
	}
	epoch := v.epoch
	v.mu.Unlock()

	cctx, release, err := v.acquireChallenge(ctx)
	if err != nil {
		return Credential{}, err
	}
	defer release()

	res, err := v.runChallenge(cctx, prompt)

	v.mu.Lock()
	defer v.mu.Unlock()

	// Lock or Clean ran while the prompt was shown; leave their state alone
	if v.epoch != epoch {
		return Credential{}, newError(KindCanceled, CodeCanceled, "vault changed during the challenge", nil)
	}

	cred, err := v.finishBiometricUnlockLocked(ctx, res, err)
	if err != nil {
		v.relockLocked()
		return Credential{}, err
	}
	return cred, nil
}

// biometricPrecheckLocked runs the checks that refuse a biometric unlock
// before any prompt is shown
func (v *Vault) biometricPrecheckLocked(ctx context.Context) error {
	if err := v.initializeLocked(); err != nil {
		return err
	}
	if err := v.biometricAvailableLocked(ctx); err != nil {
		return err
	}

	configured, err := v.configured(FactorBiometric)
	if err != nil {
		return err
	}
	if !configured {
		return newError(KindNotSetUp, CodeBiometricNotSetUp, "biometric unlock is not set", nil)
	}

	exhausted, err := v.lockout.Exhausted(FactorBiometric)
	if err != nil {
		return storageError(err)
	}
	if exhausted {
		return newError(KindTooManyAttempts, CodeBiometricTooMany, "too many attempts, biometric unlock disabled", nil)
	}

	if err := v.keys.Check(ctx, VaultKey); err != nil {
		if errors.Is(err, keystore.ErrKeyInvalidated) || errors.Is(err, keystore.ErrKeyNotFound) {
			return newError(KindKeyInvalidated, CodeKeyInvalidated, "biometric key invalidated", err)
		}
		return undefinedError("biometric key check failed", err)
	}
	return nil
}

func (v *Vault) finishBiometricUnlockLocked(ctx context.Context, res biometric.Result, challengeErr error) (Credential, error) {
	if challengeErr != nil {
		return Credential{}, newError(KindCanceled, CodeCanceled, "biometric challenge failed", challengeErr)
	}

	switch res.Outcome {
	case biometric.OutcomeSuccess:
	case biometric.OutcomeFailed:
		err := v.recordFailureLocked(FactorBiometric, "biometric not recognized")
		var e *Error
		if errors.As(err, &e) {
			e.SubCode = res.Code
		}
		return Credential{}, err
	default:
		return Credential{}, &Error{Kind: KindCanceled, Code: CodeCanceled, Message: "biometric challenge canceled", SubCode: res.Code}
	}

	auth := keystore.Authorization{AuthenticatedAt: res.AuthenticatedAt}
	record, err := v.openFactor(ctx, FactorBiometric, biometricFactor{keys: v.keys, auth: auth})
	if err != nil {
		if KindOf(err) == KindDecryptFailed {
			// A read that decrypts to garbage counts as a wrong factor
			if ferr := v.recordFailureLocked(FactorBiometric, "biometric secret failed to open"); KindOf(ferr) == KindTooManyAttempts {
				return Credential{}, ferr
			}
		}
		return Credential{}, err
	}
	defer crypto.ClearBytes(record)

	if err := v.lockout.RecordSuccess(); err != nil {
		return Credential{}, storageError(err)
	}

	login, password, _ := crypto.UnpackRecord(record)
	v.session.destroy()
	v.session.setSecret(append([]byte(nil), record...))
	v.session.setBiometricAuth(res.AuthenticatedAt)
	v.state = StateUnlocked
	v.metrics.SetUnlocked(true)

	v.log.Info().Str("factor", FactorBiometric.String()).Msg("vault unlocked")
	return Credential{Login: login, Password: password}, nil
}

func (v *Vault) biometricAvailableLocked(ctx context.Context) error {
	if v.keys == nil {
		return newError(KindBiometricUnavailable, CodeNotSupported, "biometric key store not configured", nil)
	}
	if err := v.auth.Availability(ctx); err != nil {
		return availabilityError(err)
	}
	return nil
}

func availabilityError(err error) *Error {
	switch {
	case errors.Is(err, biometric.ErrNoneEnrolled):
		return newError(KindBiometricUnavailable, CodeNoneEnrolled, "no biometrics enrolled", err)
	case errors.Is(err, biometric.ErrNotGranted):
		return newError(KindBiometricUnavailable, CodeNotGranted, "biometric permission not granted", err)
	case errors.Is(err, biometric.ErrNotSecured):
		return newError(KindBiometricUnavailable, CodeNotSecured, "device not secured", err)
	default:
		return newError(KindBiometricUnavailable, CodeNotSupported, "biometric unlock not supported", err)
	}
}

// CancelBiometry cancels the outstanding biometric challenge
func (v *Vault) CancelBiometry() {
	v.cancelChallenge()
}

// HasBiometryChanged reports whether the enrolled biometric set changed
// since the previous call. A change is reported once.
func (v *Vault) HasBiometryChanged(ctx context.Context) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.biometricAvailableLocked(ctx); err != nil {
		return false, err
	}

	change, err := v.observer.Probe(ctx)
	if err != nil {
		return false, undefinedError("enrollment probe failed", err)
	}
	if change == keystore.Changed {
		v.log.Warn().Msg("biometric enrollment changed")
	}
	return change == keystore.Changed, nil
}

// Lock drops the session. It always succeeds.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cancelChallenge()
	v.epoch++
	v.relockLocked()
}

func (v *Vault) relockLocked() {
	v.session.destroy()
	v.state = StateLocked
	v.metrics.SetUnlocked(false)
}

// Clean erases all vault fields and the biometric key. The vault is
// unlocked and empty afterwards.
func (v *Vault) Clean() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.cleanLocked(metrics.ReasonExplicit)
}

func (v *Vault) cleanLocked(reason string) error {
	v.cancelChallenge()
	v.epoch++
	v.session.destroy()

	if err := v.store.Clear(); err != nil {
		return storageError(err)
	}
	if v.keys != nil {
		if err := v.keys.DeleteKey(VaultKey); err != nil {
			v.log.Warn().Err(err).Msg("failed to delete biometric key")
		}
	}

	v.state = StateUnlocked
	v.metrics.RecordClean(reason)
	v.metrics.SetUnlocked(true)
	v.log.Info().Str("reason", reason).Msg("vault cleaned")
	return nil
}

// Status returns a summary of the vault
func (v *Vault) Status() (Status, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.initializeLocked(); err != nil {
		return Status{}, err
	}

	s := Status{State: v.state, MaxAttempts: v.lockout.Max()}
	var err error
	if s.Empty, err = v.store.IsEmpty(); err != nil {
		return Status{}, storageError(err)
	}
	if s.PINConfigured, err = v.configured(FactorPIN); err != nil {
		return Status{}, err
	}
	if s.BiometryConfigured, err = v.configured(FactorBiometric); err != nil {
		return Status{}, err
	}
	if s.PINAttempts, err = v.lockout.Attempts(FactorPIN); err != nil {
		return Status{}, storageError(err)
	}
	if s.BiometryAttempts, err = v.lockout.Attempts(FactorBiometric); err != nil {
		return Status{}, storageError(err)
	}
	return s, nil
}

// Close cancels any challenge, drops the session and closes the store
func (v *Vault) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cancelChallenge()
	v.session.destroy()
	v.state = StateUninitialized
	return v.store.Close()
}

func (v *Vault) recordUnlock(f Factor, err error) {
	result := metrics.ResultSuccess
	switch KindOf(err) {
	case KindUndefined:
		if err != nil {
			result = metrics.ResultError
		}
	case KindWrongFactor:
		result = metrics.ResultWrongFactor
	case KindTooManyAttempts:
		result = metrics.ResultLockedOut
	case KindCanceled, KindBusy:
		result = metrics.ResultCanceled
	default:
		result = metrics.ResultError
	}
	v.metrics.RecordUnlock(f.String(), result)
}
