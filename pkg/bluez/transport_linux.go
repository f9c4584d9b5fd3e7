//go:build linux

package bluez

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"

	dbus "github.com/godbus/dbus/v5"
	"go.uber.org/zap"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/registry"
)

var pathCounter uint64

// Transport implements link.Transport and registry.BondedSource on top of
// the system bus. Each Dial or Accept registers its own SPP profile, which
// stays registered until the returned connection is closed.
type Transport struct {
	ServiceName string
	Channel     uint16

	bus    *dbus.Conn
	logger *zap.Logger

	mu       sync.Mutex
	closed   bool
	profiles profileSet
}

func New(serviceName string) (*Transport, error) {
	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, wrapErr(fmt.Errorf("bluez: connect system bus: %w", err))
	}
	return &Transport{
		ServiceName: serviceName,
		Channel:     DefaultRFCOMMChannel,
		bus:         bus,
		logger:      common.GetLoggerWith(common.LoggerNameBluez),
	}, nil
}

func (t *Transport) managedObjects() (managedObjects, error) {
	var objs managedObjects
	call := t.bus.Object(bluezService, "/").Call(objManagerIface+".GetManagedObjects", 0)
	if call.Err != nil {
		return nil, wrapErr(fmt.Errorf("bluez: GetManagedObjects: %w", call.Err))
	}
	if err := call.Store(&objs); err != nil {
		return nil, fmt.Errorf("bluez: decode GetManagedObjects: %w", err)
	}
	return objs, nil
}

// CheckPermission verifies BlueZ answers us and that an adapter exists.
func (t *Transport) CheckPermission(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	objs, err := t.managedObjects()
	if err != nil {
		return err
	}
	if !hasAdapter(objs) {
		return errors.New("bluez: no bluetooth adapter")
	}
	return nil
}

func (t *Transport) BondedDevices(ctx context.Context) ([]registry.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	objs, err := t.managedObjects()
	if err != nil {
		return nil, err
	}
	devices := bondedFromObjects(objs)
	t.logger.Debug("Listed bonded devices", zap.Int("count", len(devices)))
	return devices, nil
}

// profile implements org.bluez.Profile1. It hands the first connection to
// whoever waits on ch and rejects the rest.
type profile struct {
	ch       chan newConn
	accepted atomic.Bool
}

type newConn struct {
	fd  int
	dev registry.Device
}

func (p *profile) Release() *dbus.Error { return nil }

func (p *profile) Cancel() *dbus.Error { return nil }

func (p *profile) RequestDisconnection(_ dbus.ObjectPath) *dbus.Error { return nil }

func (p *profile) NewConnection(dev dbus.ObjectPath, fd dbus.UnixFD, _ map[string]dbus.Variant) *dbus.Error {
	res := newConn{
		fd:  int(fd),
		dev: registry.Device{Path: string(dev), Address: macFromPath(dev)},
	}
	if !p.accepted.CompareAndSwap(false, true) {
		_ = syscall.Close(res.fd)
		return &dbus.Error{Name: "org.bluez.Error.Rejected", Body: []interface{}{"already connected"}}
	}
	select {
	case p.ch <- res:
		return nil
	default:
		_ = syscall.Close(res.fd)
		return &dbus.Error{Name: "org.bluez.Error.Rejected", Body: []interface{}{"no receiver"}}
	}
}

// register exports a fresh profile and registers it with BlueZ. The returned
// func undoes both.
func (t *Transport) register(role string) (*profile, func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, nil, errors.New("bluez: transport closed")
	}

	prof := &profile{ch: make(chan newConn, 1)}
	id := atomic.AddUint64(&pathCounter, 1)
	path := dbus.ObjectPath(profilePathPrefix + "/" + role + strconv.FormatUint(id, 10))
	if err := t.bus.Export(prof, path, profileIface); err != nil {
		return nil, nil, fmt.Errorf("bluez: export %s profile: %w", role, err)
	}

	opts := map[string]dbus.Variant{
		"Role": dbus.MakeVariant(role),
	}
	if role == "server" {
		opts["Name"] = dbus.MakeVariant(t.ServiceName)
		opts["Channel"] = dbus.MakeVariant(t.Channel)
	}

	pm := t.bus.Object(bluezService, "/org/bluez")
	if call := pm.Call(profileManagerIface+".RegisterProfile", 0, path, SPPUUID, opts); call.Err != nil {
		_ = t.bus.Export(nil, path, profileIface)
		return nil, nil, wrapErr(fmt.Errorf("bluez: RegisterProfile(%s): %w", role, call.Err))
	}

	release := t.profiles.add(path, func() {
		_ = pm.Call(profileManagerIface+".UnregisterProfile", 0, path).Err
		_ = t.bus.Export(nil, path, profileIface)
	})
	return prof, release, nil
}

func (t *Transport) Dial(ctx context.Context, dev registry.Device) (io.ReadWriteCloser, error) {
	if dev.Path == "" {
		return nil, errors.New("bluez: device path required")
	}

	prof, release, err := t.register("client")
	if err != nil {
		return nil, err
	}

	call := t.bus.Object(bluezService, dbus.ObjectPath(dev.Path)).CallWithContext(ctx, deviceIface+".ConnectProfile", 0, SPPUUID)
	if call.Err != nil {
		release()
		return nil, wrapErr(fmt.Errorf("bluez: ConnectProfile: %w", call.Err))
	}

	select {
	case <-ctx.Done():
		release()
		return nil, ctx.Err()
	case res := <-prof.ch:
		return newRFCOMMConn(res.fd, release)
	}
}

func (t *Transport) Accept(ctx context.Context) (io.ReadWriteCloser, registry.Device, error) {
	prof, release, err := t.register("server")
	if err != nil {
		return nil, registry.Device{}, err
	}

	t.logger.Info("Waiting for SPP connection", zap.String("service", t.ServiceName), zap.Uint16("channel", t.Channel))
	select {
	case <-ctx.Done():
		release()
		return nil, registry.Device{}, ctx.Err()
	case res := <-prof.ch:
		conn, err := newRFCOMMConn(res.fd, release)
		if err != nil {
			return nil, registry.Device{}, err
		}
		dev := t.describe(res.dev)
		t.logger.Info("Accepted SPP connection", zap.String("address", dev.Address), zap.String("name", dev.Name))
		return conn, dev, nil
	}
}

// describe fills in name and alias of an accepted peer when BlueZ knows it.
func (t *Transport) describe(dev registry.Device) registry.Device {
	objs, err := t.managedObjects()
	if err != nil {
		return dev
	}
	props, ok := objs[dbus.ObjectPath(dev.Path)][deviceIface]
	if !ok {
		return dev
	}
	dev.Name, _ = variantValue[string](props, "Name")
	dev.Alias, _ = variantValue[string](props, "Alias")
	return dev
}

// Close unregisters every profile still held and closes the bus.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	for _, release := range t.profiles.drain() {
		release()
	}
	return t.bus.Close()
}

type rfcommConn struct {
	*os.File
	release func()
}

func newRFCOMMConn(fd int, release func()) (*rfcommConn, error) {
	// Non-blocking so that Close unblocks a pending Read through the poller.
	if err := syscall.SetNonblock(fd, true); err != nil {
		_ = syscall.Close(fd)
		release()
		return nil, fmt.Errorf("bluez: set nonblock: %w", err)
	}
	return &rfcommConn{File: os.NewFile(uintptr(fd), "rfcomm"), release: release}, nil
}

func (c *rfcommConn) Close() error {
	err := c.File.Close()
	c.release()
	return err
}
