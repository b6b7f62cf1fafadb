package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// DeriveVerificationTag computes the tag stored next to the sealed secret
// to check a factor secret without keeping it: HMAC-SHA256 keyed with the
// secret over the device id, base64 encoded. Line breaks never appear in
// the result. An empty secret is a valid HMAC key.
func DeriveVerificationTag(deviceID string, secret []byte) (string, error) {
	mac := hmac.New(sha256.New, secret)
	if _, err := mac.Write([]byte(deviceID)); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryptFailed, err)
	}

	tag := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return stripLineBreaks(tag), nil
}

// DeriveEncryptionKey returns SHA256(deviceID || secret), used directly as
// the AES-256 key. The key is bound to both the device and the factor.
// The caller owns the returned slice and should clear it.
func DeriveEncryptionKey(deviceID string, secret []byte) []byte {
	h := sha256.New()
	h.Write([]byte(deviceID))
	h.Write(secret)
	return h.Sum(nil)
}

// VerifyTag compares a stored tag with a freshly derived one in constant time.
// Stored tags are normalized the same way derived ones are.
func VerifyTag(stored, derived string) bool {
	return ConstantTimeCompare([]byte(stripLineBreaks(stored)), []byte(derived))
}

func stripLineBreaks(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}
