// Package vault gates a single login/password credential behind an
// unlock code and a biometric factor.
//
// The vault starts Uninitialized and resolves to Locked when anything is
// persisted, or Unlocked when the store is empty. Each factor keeps its
// own sealed copy of the secret and its own failure counter; a success
// through either factor resets both. Running out of code attempts erases
// the vault, running out of biometric attempts only disables biometric
// unlock until the next successful unlock.
//
// Only one biometric challenge is outstanding at a time. Starting a new
// one cancels the previous challenge, and Lock or Clean cancel it too.
//
// Every error returned by a Vault is a *Error carrying a Kind and a
// stable Code; use errors.Is with the Err* sentinels to match them.
package vault
