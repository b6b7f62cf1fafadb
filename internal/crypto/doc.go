// Package crypto provides cryptographic operations for credvault.
//
// Key derivation binds every factor secret to the device:
//   - Verification tag: base64(HMAC-SHA256(key=secret, msg=deviceID)),
//     line breaks stripped, stored to check a PIN without persisting it
//   - Encryption key: SHA256(deviceID || secret), 32 bytes
//
// Encryption uses AES-256-CBC with PKCS7 padding:
//   - 16-byte random IV per seal operation, persisted by the caller
//   - Padding is verified on open; any failure is ErrDecryptFailed
//
// Secrets are packed as login SEP password SEP sha256(login SEP password)
// so that a key which happens to decrypt cleanly but wrongly is detected.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
package crypto
