package biometric

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestFprintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no device", dbus.Error{Name: "net.reactivated.Fprint.Error.NoSuchDevice"}, ErrNotSupported},
		{"service missing", dbus.Error{Name: "org.freedesktop.DBus.Error.ServiceUnknown"}, ErrNotSupported},
		{"no prints", dbus.Error{Name: "net.reactivated.Fprint.Error.NoEnrolledPrints"}, ErrNoneEnrolled},
		{"denied", dbus.NewError("net.reactivated.Fprint.Error.PermissionDenied", []interface{}{"Not Authorized"}), ErrNotGranted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := fprintError(tt.err); !errors.Is(err, tt.want) {
				t.Errorf("fprintError() = %v, want %v", err, tt.want)
			}
		})
	}

	if fprintError(nil) != nil {
		t.Error("nil should map to nil")
	}

	err := fprintError(dbus.Error{Name: "net.reactivated.Fprint.Error.AlreadyInUse"})
	for _, sentinel := range []error{ErrNotSupported, ErrNoneEnrolled, ErrNotGranted} {
		if errors.Is(err, sentinel) {
			t.Errorf("AlreadyInUse should not map to %v", sentinel)
		}
	}
}

func TestParseVerifyStatus(t *testing.T) {
	path := dbus.ObjectPath("/net/reactivated/Fprint/Device/0")

	st, ok := parseVerifyStatus(&dbus.Signal{
		Path: path,
		Name: "net.reactivated.Fprint.Device.VerifyStatus",
		Body: []interface{}{"verify-match", true},
	}, path)
	if !ok || st.Result != VerifyMatch || !st.Done {
		t.Errorf("parseVerifyStatus = (%+v, %v)", st, ok)
	}

	ignored := []*dbus.Signal{
		nil,
		{Path: "/net/reactivated/Fprint/Device/1", Name: "net.reactivated.Fprint.Device.VerifyStatus", Body: []interface{}{"verify-match", true}},
		{Path: path, Name: "net.reactivated.Fprint.Device.VerifyFingerSelected", Body: []interface{}{"any"}},
		{Path: path, Name: "net.reactivated.Fprint.Device.VerifyStatus", Body: []interface{}{"verify-match"}},
	}
	for i, sig := range ignored {
		if _, ok := parseVerifyStatus(sig, path); ok {
			t.Errorf("Signal %d should be ignored", i)
		}
	}
}
