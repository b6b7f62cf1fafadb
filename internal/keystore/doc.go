// Package keystore provides authentication-gated symmetric keys.
//
// The Keyring implementation keeps each key in the OS keyring as a CBOR
// record together with an HKDF binding to the current biometric
// enrollment id. When the enrolled set changes the binding no longer
// matches and the key reports ErrKeyInvalidated forever; callers must
// delete and regenerate it.
//
// Encrypt and Decrypt additionally require an Authorization whose
// AuthenticatedAt lies within the validity window (DefaultValidity).
//
// ChangeObserver uses a separate canary key to answer "did the
// enrollment change" without invalidating anything the vault depends on.
package keystore
