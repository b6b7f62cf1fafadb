// Package device identifies the host the vault is bound to.
package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/denisbrodbeck/machineid"
)

var ErrNoDeviceID = errors.New("device identifier unavailable")

// DefaultAppID scopes the machine id to credvault
const DefaultAppID = "credvault"

// Identifier provides a stable per-device string
type Identifier interface {
	DeviceID() (string, error)
}

// MachineID derives the device identifier from the OS machine id,
// HMAC-keyed per application so the raw id never leaves this package
type MachineID struct {
	appID     string
	protected func(appID string) (string, error)
}

// NewMachineID returns an identifier scoped to appID, or DefaultAppID when empty
func NewMachineID(appID string) *MachineID {
	if appID == "" {
		appID = DefaultAppID
	}
	return &MachineID{appID: appID, protected: machineid.ProtectedID}
}

// DeviceID returns the application-specific machine id
func (m *MachineID) DeviceID() (string, error) {
	id, err := m.protected(m.appID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoDeviceID, err)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrNoDeviceID
	}
	return id, nil
}

// Static is a fixed identifier
type Static string

func (s Static) DeviceID() (string, error) {
	if s == "" {
		return "", ErrNoDeviceID
	}
	return string(s), nil
}
