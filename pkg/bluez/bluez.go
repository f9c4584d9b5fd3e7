// Package bluez talks to the BlueZ daemon over D-Bus. It lists bonded
// devices and carries the serial link over RFCOMM with the Serial Port
// Profile, the fd for each connection coming from Profile1.NewConnection.
package bluez

import (
	"errors"
	"io/fs"
	"strings"
	"sync"

	dbus "github.com/godbus/dbus/v5"
	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/registry"
)

const (
	SPPUUID = "00001101-0000-1000-8000-00805f9b34fb"

	// DefaultRFCOMMChannel is used by the server role profile.
	DefaultRFCOMMChannel uint16 = 22

	bluezService        = "org.bluez"
	profileIface        = "org.bluez.Profile1"
	profileManagerIface = "org.bluez.ProfileManager1"
	deviceIface         = "org.bluez.Device1"
	adapterIface        = "org.bluez.Adapter1"
	objManagerIface     = "org.freedesktop.DBus.ObjectManager"

	profilePathPrefix = "/xyz/liyu1981/alerta_mesh/profile"
)

type managedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

var permissionErrorNames = []string{
	"org.freedesktop.DBus.Error.AccessDenied",
	"org.bluez.Error.NotAuthorized",
	"org.bluez.Error.NotPermitted",
}

// isPermissionError reports whether err means the process may not use
// Bluetooth, either from D-Bus policy, BlueZ itself, or the bus socket.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrPermission) {
		return true
	}

	var name string
	var de dbus.Error
	var dp *dbus.Error
	switch {
	case errors.As(err, &de):
		name = de.Name
	case errors.As(err, &dp) && dp != nil:
		name = dp.Name
	}
	for _, n := range permissionErrorNames {
		if name == n {
			return true
		}
	}
	return false
}

// wrapErr turns D-Bus permission failures into PermissionDenied and leaves
// anything else alone.
func wrapErr(err error) error {
	if isPermissionError(err) {
		return apperr.PermissionDenied(err)
	}
	return err
}

// bondedFromObjects picks the paired devices out of a GetManagedObjects
// reply.
func bondedFromObjects(objs managedObjects) []registry.Device {
	var out []registry.Device
	for path, ifaces := range objs {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		if paired, _ := variantValue[bool](props, "Paired"); !paired {
			continue
		}

		mac, _ := variantValue[string](props, "Address")
		if mac == "" {
			mac = macFromPath(path)
		}
		name, _ := variantValue[string](props, "Name")
		alias, _ := variantValue[string](props, "Alias")

		out = append(out, registry.Device{
			Path:    string(path),
			Address: mac,
			Name:    name,
			Alias:   alias,
		})
	}
	return out
}

func variantValue[T any](props map[string]dbus.Variant, key string) (T, bool) {
	var zero T
	v, ok := props[key]
	if !ok {
		return zero, false
	}
	t, ok := v.Value().(T)
	return t, ok
}

func hasAdapter(objs managedObjects) bool {
	for _, ifaces := range objs {
		if _, ok := ifaces[adapterIface]; ok {
			return true
		}
	}
	return false
}

func macFromPath(p dbus.ObjectPath) string {
	s := string(p)
	idx := strings.LastIndex(s, "/dev_")
	if idx < 0 {
		return ""
	}
	return strings.ReplaceAll(s[idx+5:], "_", ":")
}

// profileSet tracks the registered profiles a transport still holds, keyed
// by object path, so that Close can release whatever is left.
type profileSet struct {
	mu   sync.Mutex
	held map[dbus.ObjectPath]func()
}

// add tracks fn under path. The returned func runs fn at most once and stops
// tracking path.
func (s *profileSet) add(path dbus.ObjectPath, fn func()) func() {
	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.held, path)
			s.mu.Unlock()
			fn()
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held == nil {
		s.held = make(map[dbus.ObjectPath]func())
	}
	s.held[path] = release
	return release
}

// drain stops tracking every profile and returns their release funcs.
func (s *profileSet) drain() []func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	releases := make([]func(), 0, len(s.held))
	for _, release := range s.held {
		releases = append(releases, release)
	}
	s.held = nil
	return releases
}

func (s *profileSet) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}
