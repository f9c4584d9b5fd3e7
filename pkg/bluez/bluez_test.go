package bluez

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"testing"

	dbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/registry"
)

func deviceProps(addr, name string, paired bool) map[string]map[string]dbus.Variant {
	return map[string]map[string]dbus.Variant{
		deviceIface: {
			"Address": dbus.MakeVariant(addr),
			"Name":    dbus.MakeVariant(name),
			"Alias":   dbus.MakeVariant(name),
			"Paired":  dbus.MakeVariant(paired),
		},
	}
}

func TestBondedFromObjects(t *testing.T) {
	objs := managedObjects{
		"/org/bluez/hci0": {adapterIface: {"Powered": dbus.MakeVariant(true)}},
		"/org/bluez/hci0/dev_24_6F_28_AA_BB_CC": deviceProps("24:6F:28:AA:BB:CC", "ESP32_Alerta", true),
		"/org/bluez/hci0/dev_11_22_33_44_55_66": deviceProps("11:22:33:44:55:66", "S22+ de Perik24", true),
		"/org/bluez/hci0/dev_99_99_99_99_99_99": deviceProps("99:99:99:99:99:99", "Vecino", false),
	}

	got := bondedFromObjects(objs)
	sort.Slice(got, func(i, j int) bool { return got[i].Address < got[j].Address })

	require.Len(t, got, 2)
	assert.Equal(t, registry.Device{
		Path:    "/org/bluez/hci0/dev_11_22_33_44_55_66",
		Address: "11:22:33:44:55:66",
		Name:    "S22+ de Perik24",
		Alias:   "S22+ de Perik24",
	}, got[0])
	assert.Equal(t, "ESP32_Alerta", got[1].Name)

	assert.True(t, hasAdapter(objs))
	assert.False(t, hasAdapter(managedObjects{}))
}

func TestBondedFromObjects_AddressFromPath(t *testing.T) {
	objs := managedObjects{
		"/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF": {
			deviceIface: {
				"Paired": dbus.MakeVariant(true),
				"Name":   dbus.MakeVariant("ESP32_Alerta"),
			},
		},
	}
	got := bondedFromObjects(objs)
	require.Len(t, got, 1)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", got[0].Address)
}

func TestMacFromPath(t *testing.T) {
	assert.Equal(t, "24:6F:28:AA:BB:CC", macFromPath("/org/bluez/hci0/dev_24_6F_28_AA_BB_CC"))
	assert.Equal(t, "", macFromPath("/org/bluez/hci0"))
}

func TestPermissionErrors(t *testing.T) {
	for _, name := range permissionErrorNames {
		err := fmt.Errorf("bluez: ConnectProfile: %w", dbus.Error{Name: name})
		assert.True(t, isPermissionError(err), name)
		assert.ErrorIs(t, wrapErr(err), apperr.ErrPermissionDenied, name)
	}

	assert.True(t, isPermissionError(&dbus.Error{Name: "org.bluez.Error.NotAuthorized"}))
	assert.True(t, isPermissionError(fmt.Errorf("dial: %w", fs.ErrPermission)))

	other := dbus.Error{Name: "org.bluez.Error.Failed"}
	assert.False(t, isPermissionError(other))
	assert.False(t, isPermissionError(errors.New("boom")))
	assert.False(t, isPermissionError(nil))
	assert.Equal(t, error(other), wrapErr(other))
}

func TestProfileSet_ReleaseStopsTracking(t *testing.T) {
	var set profileSet
	calls := map[dbus.ObjectPath]int{}

	var releases []func()
	for i := range 50 {
		path := dbus.ObjectPath(fmt.Sprintf("%s/client%d", profilePathPrefix, i))
		releases = append(releases, set.add(path, func() { calls[path]++ }))
	}
	assert.Equal(t, 50, set.count())

	for _, release := range releases {
		release()
		release()
	}
	assert.Equal(t, 0, set.count())
	for path, n := range calls {
		assert.Equal(t, 1, n, path)
	}
	assert.Empty(t, set.drain())
}

func TestProfileSet_DrainReturnsHeld(t *testing.T) {
	var set profileSet
	released := 0

	first := set.add(profilePathPrefix+"/client1", func() { released++ })
	set.add(profilePathPrefix+"/server2", func() { released++ })
	first()

	pending := set.drain()
	require.Len(t, pending, 1)
	pending[0]()
	assert.Equal(t, 2, released)
	assert.Equal(t, 0, set.count())
}
