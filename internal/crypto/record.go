package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Separator joins the fields of a packed secret record. It is not escaped,
// so fields containing it are refused by PackRecord.
const Separator = "some_separator"

var (
	ErrSeparatorInField = errors.New("field contains record separator")
	ErrMalformedRecord  = errors.New("malformed record")
	ErrIntegrity        = errors.New("record integrity check failed")
)

// PackRecord builds login SEP password SEP hex(sha256(login SEP password)).
func PackRecord(login, password string) ([]byte, error) {
	if strings.Contains(login, Separator) || strings.Contains(password, Separator) {
		return nil, ErrSeparatorInField
	}

	body := login + Separator + password
	return []byte(body + Separator + recordHash(body)), nil
}

// UnpackRecord splits a packed record and verifies its integrity hash.
func UnpackRecord(record []byte) (login, password string, err error) {
	fields := strings.Split(string(record), Separator)
	if len(fields) != 3 {
		return "", "", ErrMalformedRecord
	}

	body := fields[0] + Separator + fields[1]
	if !ConstantTimeCompare([]byte(recordHash(body)), []byte(fields[2])) {
		return "", "", ErrIntegrity
	}

	return fields[0], fields[1], nil
}

func recordHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}
