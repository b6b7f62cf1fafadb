package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
)

const (
	KeySize = 32            // AES-256 key size
	IVSize  = aes.BlockSize // CBC initialization vector size
)

var (
	ErrInvalidKey        = errors.New("invalid key size")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidIV         = errors.New("invalid initialization vector")
	ErrDecryptFailed     = errors.New("decrypt failed")
	ErrEncryptFailed     = errors.New("encrypt failed")
)

// SealCBC encrypts plaintext with AES-256-CBC and PKCS7 padding.
// A fresh random IV is generated for every call and returned alongside
// the ciphertext; the caller persists it separately.
func SealCBC(key, plaintext []byte) (ciphertext, iv []byte, err error) {
	if len(key) != KeySize {
		return nil, nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	iv, err = GenerateRandom(IVSize)
	if err != nil {
		return nil, nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	defer ClearBytes(padded)

	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return ciphertext, iv, nil
}

// OpenCBC decrypts AES-256-CBC ciphertext produced by SealCBC.
// Any length, IV or padding problem is reported as ErrDecryptFailed.
func OpenCBC(key, ciphertext, iv []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: %w", ErrDecryptFailed, ErrInvalidIV)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: %w", ErrDecryptFailed, ErrInvalidCiphertext)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		ClearBytes(padded)
		return nil, err
	}

	return plaintext, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrDecryptFailed
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, ErrDecryptFailed
	}

	var bad byte
	for _, b := range data[len(data)-n:] {
		bad |= b ^ byte(n)
	}
	if bad != 0 {
		return nil, ErrDecryptFailed
	}

	return data[:len(data)-n], nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
