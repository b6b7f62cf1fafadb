package vault

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/illarion/credvault/internal/crypto"
	"github.com/illarion/credvault/internal/keystore"
	"github.com/illarion/credvault/internal/storage"
)

// Persisted field names
const (
	FieldCheckHash           = "check_hash"
	FieldLoginPass           = "login_pass"
	FieldPINIV               = "pincode_cipherIV"
	FieldFingerprintSecret   = "fingerprint_secret"
	FieldTouchIDIV           = "touchid_cipherIV"
	FieldPINAttempts         = "pincode_attempts"
	FieldFingerprintAttempts = "fingerprint_attempts"
)

// VaultKey is the hardware key protecting the biometric copy
const VaultKey = "vault"

// Factor is an unlock method
type Factor int

const (
	FactorPIN Factor = iota
	FactorBiometric
)

func (f Factor) String() string {
	if f == FactorBiometric {
		return "biometry"
	}
	return "pin"
}

type factorFields struct {
	ciphertext string
	iv         string
	attempts   string
}

type factorCodes struct {
	wrong       string
	tooMany     string
	decrypt     string
	encryptInit string
	notSetUp    string
}

func (f Factor) fields() factorFields {
	if f == FactorBiometric {
		return factorFields{FieldFingerprintSecret, FieldTouchIDIV, FieldFingerprintAttempts}
	}
	return factorFields{FieldLoginPass, FieldPINIV, FieldPINAttempts}
}

func (f Factor) codes() factorCodes {
	if f == FactorBiometric {
		return factorCodes{CodeBiometricWrong, CodeBiometricTooMany, CodeBiometricDecrypt, CodeBiometricEncrypt, CodeBiometricNotSetUp}
	}
	return factorCodes{CodePINWrong, CodePINTooMany, CodePINDecrypt, CodePINEncryptInit, CodePINNotSetUp}
}

// cipherProvider seals and opens the secret for one factor
type cipherProvider interface {
	seal(ctx context.Context, plaintext []byte) (ciphertext, iv []byte, err error)
	open(ctx context.Context, ciphertext, iv []byte) ([]byte, error)
}

// pinFactor uses the key derived from the unlock code
type pinFactor struct {
	key []byte
}

func (p pinFactor) seal(_ context.Context, plaintext []byte) ([]byte, []byte, error) {
	return crypto.SealCBC(p.key, plaintext)
}

func (p pinFactor) open(_ context.Context, ciphertext, iv []byte) ([]byte, error) {
	return crypto.OpenCBC(p.key, ciphertext, iv)
}

// biometricFactor uses the hardware vault key, authorized by a challenge
type biometricFactor struct {
	keys keystore.KeyStore
	auth keystore.Authorization
}

func (b biometricFactor) seal(ctx context.Context, plaintext []byte) ([]byte, []byte, error) {
	return b.keys.Encrypt(ctx, VaultKey, b.auth, plaintext)
}

func (b biometricFactor) open(ctx context.Context, ciphertext, iv []byte) ([]byte, error) {
	return b.keys.Decrypt(ctx, VaultKey, b.auth, ciphertext, iv)
}

// sealedCopy is a factor's encrypted record, not yet persisted
type sealedCopy struct {
	factor     Factor
	ciphertext []byte
	iv         []byte
}

// encryptFactor encrypts record with p for f without touching the store
func encryptFactor(ctx context.Context, f Factor, p cipherProvider, record []byte) (sealedCopy, error) {
	ciphertext, iv, err := p.seal(ctx, record)
	if err != nil {
		if errors.Is(err, keystore.ErrKeyInvalidated) {
			return sealedCopy{}, newError(KindKeyInvalidated, CodeKeyInvalidated, "biometric key invalidated", err)
		}
		return sealedCopy{}, newError(KindEncryptInitFailed, f.codes().encryptInit, "failed to seal secret", err)
	}
	return sealedCopy{factor: f, ciphertext: ciphertext, iv: iv}, nil
}

// writeCopy persists c under its factor's fields
func (v *Vault) writeCopy(c sealedCopy) error {
	fields := c.factor.fields()
	if err := v.store.Set(fields.iv, encode(c.iv)); err != nil {
		return storageError(err)
	}
	if err := v.store.Set(fields.ciphertext, encode(c.ciphertext)); err != nil {
		return storageError(err)
	}
	return nil
}

// sealFactor encrypts record with p and persists it under f's fields
func (v *Vault) sealFactor(ctx context.Context, f Factor, p cipherProvider, record []byte) error {
	c, err := encryptFactor(ctx, f, p, record)
	if err != nil {
		return err
	}
	return v.writeCopy(c)
}

// openFactor loads f's sealed copy and returns the packed record.
// Decrypt and integrity failures are KindDecryptFailed.
func (v *Vault) openFactor(ctx context.Context, f Factor, p cipherProvider) ([]byte, error) {
	fields := f.fields()
	codes := f.codes()

	ciphertext, err := v.getDecoded(fields.ciphertext)
	if err != nil {
		return nil, err
	}
	iv, err := v.getDecoded(fields.iv)
	if err != nil {
		return nil, err
	}
	if ciphertext == nil || iv == nil {
		return nil, newError(KindDecryptFailed, codes.decrypt, "sealed secret is missing", nil)
	}

	record, err := p.open(ctx, ciphertext, iv)
	if err != nil {
		if errors.Is(err, keystore.ErrKeyInvalidated) {
			return nil, newError(KindKeyInvalidated, CodeKeyInvalidated, "biometric key invalidated", err)
		}
		return nil, newError(KindDecryptFailed, codes.decrypt, "failed to open secret", err)
	}
	if _, _, err := crypto.UnpackRecord(record); err != nil {
		crypto.ClearBytes(record)
		return nil, newError(KindDecryptFailed, codes.decrypt, "secret failed integrity check", err)
	}
	return record, nil
}

// dropFactor removes f's sealed copy
func (v *Vault) dropFactor(f Factor) error {
	keys := []string{f.fields().ciphertext, f.fields().iv}
	if f == FactorPIN {
		keys = append(keys, FieldCheckHash)
	}
	for _, k := range keys {
		if err := v.store.Set(k, nil); err != nil {
			return storageError(err)
		}
	}
	return nil
}

// configured reports whether f has a sealed copy
func (v *Vault) configured(f Factor) (bool, error) {
	key := f.fields().ciphertext
	if f == FactorPIN {
		key = FieldCheckHash
	}
	_, err := v.store.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageError(err)
	}
	return true, nil
}

func (v *Vault) getDecoded(key string) ([]byte, error) {
	data, err := v.store.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(err)
	}
	decoded, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, nil
	}
	return decoded, nil
}

func encode(b []byte) []byte {
	return []byte(base64.StdEncoding.EncodeToString(b))
}
