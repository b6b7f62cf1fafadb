package biometric

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

// fprintd D-Bus names
const (
	fprintService     = "net.reactivated.Fprint"
	fprintManagerPath = dbus.ObjectPath("/net/reactivated/Fprint/Manager")
	fprintManager     = "net.reactivated.Fprint.Manager"
	fprintDevice      = "net.reactivated.Fprint.Device"
	fprintErrorPrefix = "net.reactivated.Fprint.Error."
)

// dbusDevice is a reader reached over the system bus
type dbusDevice struct {
	conn *dbus.Conn
	obj  dbus.BusObject
	path dbus.ObjectPath

	mu      sync.Mutex
	signals chan *dbus.Signal
	done    chan struct{}
	closed  bool
}

// OpenSystemDevice connects to fprintd on the system bus and returns its
// default reader
func OpenSystemDevice(ctx context.Context) (Device, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotSupported, err)
	}

	var path dbus.ObjectPath
	err = conn.Object(fprintService, fprintManagerPath).
		CallWithContext(ctx, fprintManager+".GetDefaultDevice", 0).
		Store(&path)
	if err != nil {
		conn.Close()
		return nil, fprintError(err)
	}

	return &dbusDevice{
		conn: conn,
		obj:  conn.Object(fprintService, path),
		path: path,
		done: make(chan struct{}),
	}, nil
}

func (d *dbusDevice) Name(ctx context.Context) (string, error) {
	v, err := d.obj.GetProperty(fprintDevice + ".name")
	if err != nil {
		return "", fprintError(err)
	}
	name, _ := v.Value().(string)
	return name, nil
}

func (d *dbusDevice) ListEnrolledFingers(ctx context.Context, user string) ([]string, error) {
	var fingers []string
	err := d.obj.CallWithContext(ctx, fprintDevice+".ListEnrolledFingers", 0, user).Store(&fingers)
	if err != nil {
		return nil, fprintError(err)
	}
	return fingers, nil
}

func (d *dbusDevice) Claim(ctx context.Context, user string) error {
	return fprintError(d.obj.CallWithContext(ctx, fprintDevice+".Claim", 0, user).Err)
}

func (d *dbusDevice) Release(ctx context.Context) error {
	return fprintError(d.obj.CallWithContext(ctx, fprintDevice+".Release", 0).Err)
}

func (d *dbusDevice) matchVerifyStatus() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(d.path),
		dbus.WithMatchInterface(fprintDevice),
		dbus.WithMatchMember("VerifyStatus"),
	}
}

func (d *dbusDevice) VerifyStart(ctx context.Context, finger string) (<-chan VerifyStatus, error) {
	// Subscribe first so a fast result is not missed
	if err := d.conn.AddMatchSignalContext(ctx, d.matchVerifyStatus()...); err != nil {
		return nil, fmt.Errorf("failed to subscribe to VerifyStatus: %w", err)
	}
	signals := make(chan *dbus.Signal, 8)
	d.conn.Signal(signals)

	if err := d.obj.CallWithContext(ctx, fprintDevice+".VerifyStart", 0, finger).Err; err != nil {
		d.conn.RemoveSignal(signals)
		d.conn.RemoveMatchSignal(d.matchVerifyStatus()...)
		return nil, fprintError(err)
	}

	d.mu.Lock()
	d.signals = signals
	d.mu.Unlock()

	out := make(chan VerifyStatus, 1)
	go d.forward(signals, out)
	return out, nil
}

// forward turns VerifyStatus signals into VerifyStatus values until the
// device is closed
func (d *dbusDevice) forward(signals <-chan *dbus.Signal, out chan<- VerifyStatus) {
	defer close(out)
	for {
		select {
		case <-d.done:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			st, ok := parseVerifyStatus(sig, d.path)
			if !ok {
				continue
			}
			select {
			case out <- st:
			case <-d.done:
				return
			}
		}
	}
}

func parseVerifyStatus(sig *dbus.Signal, path dbus.ObjectPath) (VerifyStatus, bool) {
	if sig == nil || sig.Path != path || sig.Name != fprintDevice+".VerifyStatus" || len(sig.Body) < 2 {
		return VerifyStatus{}, false
	}
	result, ok := sig.Body[0].(string)
	if !ok {
		return VerifyStatus{}, false
	}
	done, _ := sig.Body[1].(bool)
	return VerifyStatus{Result: result, Done: done}, true
}

func (d *dbusDevice) VerifyStop(ctx context.Context) error {
	return fprintError(d.obj.CallWithContext(ctx, fprintDevice+".VerifyStop", 0).Err)
}

func (d *dbusDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	close(d.done)

	if d.signals != nil {
		d.conn.RemoveSignal(d.signals)
		d.conn.RemoveMatchSignal(d.matchVerifyStatus()...)
	}
	return d.conn.Close()
}

// fprintError maps fprintd and bus errors to the availability errors
func fprintError(err error) error {
	if err == nil {
		return nil
	}

	var name string
	var value dbus.Error
	var ptr *dbus.Error
	switch {
	case errors.As(err, &value):
		name = value.Name
	case errors.As(err, &ptr):
		name = ptr.Name
	default:
		return fmt.Errorf("fprintd: %w", err)
	}

	switch name {
	case fprintErrorPrefix + "NoSuchDevice",
		"org.freedesktop.DBus.Error.ServiceUnknown",
		"org.freedesktop.DBus.Error.NameHasNoOwner":
		return fmt.Errorf("%w: %w", ErrNotSupported, err)
	case fprintErrorPrefix + "NoEnrolledPrints":
		return fmt.Errorf("%w: %w", ErrNoneEnrolled, err)
	case fprintErrorPrefix + "PermissionDenied",
		"org.freedesktop.DBus.Error.AccessDenied":
		return fmt.Errorf("%w: %w", ErrNotGranted, err)
	default:
		return fmt.Errorf("fprintd %s: %w", name, err)
	}
}
