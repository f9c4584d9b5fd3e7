package registry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	_ "liyu1981.xyz/alerta-mesh/pkg/testing"
)

type flagLink struct {
	connected atomic.Bool
	calls     atomic.Int32
}

func (f *flagLink) IsConnected() bool {
	f.calls.Add(1)
	return f.connected.Load()
}

type failingSource struct{ err error }

func (f failingSource) BondedDevices(context.Context) ([]Device, error) { return nil, f.err }

var names = map[Role]string{
	RoleController:     common.DefaultControllerName,
	RoleCompanionPhone: common.DefaultCompanionName,
}

func TestFindPeerByName_ExactMatch(t *testing.T) {
	common.SetTestLoggerNop()

	src := &StaticSource{Devices: []Device{
		{Path: "/org/bluez/hci0/dev_AA", Address: "AA", Name: "ESP32_Alerta_2"},
		{Path: "/org/bluez/hci0/dev_BB", Address: "BB", Name: "ESP32_Alerta"},
		{Path: "/org/bluez/hci0/dev_CC", Address: "CC", Name: "esp32_alerta"},
	}}
	reg := New(src, MatchFirst, names)

	dev, err := reg.FindPeerByName(context.Background(), "ESP32_Alerta")
	require.NoError(t, err)
	assert.Equal(t, "BB", dev.Address)

	_, err = reg.FindPeerByName(context.Background(), "ESP32")
	require.ErrorIs(t, err, apperr.ErrDeviceNotFound)
}

func TestFindPeerByName_DuplicateNames(t *testing.T) {
	common.SetTestLoggerNop()

	src := &StaticSource{Devices: []Device{
		{Path: "p1", Address: "11", Name: "S22+ de Perik24"},
		{Path: "p2", Address: "22", Name: "S22+ de Perik24"},
	}}

	{
		reg := New(src, MatchFirst, names)
		dev, err := reg.FindPeerByName(context.Background(), "S22+ de Perik24")
		require.NoError(t, err)
		assert.Equal(t, "11", dev.Address, "first match wins")
	}

	{
		reg := New(src, MatchStrict, names)
		_, err := reg.FindPeerByName(context.Background(), "S22+ de Perik24")
		require.ErrorIs(t, err, apperr.ErrAmbiguousPeer)
	}
}

func TestFindPeerByName_SourceErrors(t *testing.T) {
	common.SetTestLoggerNop()

	{
		reg := New(failingSource{err: errors.New("bus down")}, MatchFirst, names)
		_, err := reg.FindPeerByName(context.Background(), "ESP32_Alerta")
		require.ErrorIs(t, err, apperr.ErrConnectionFailed)
	}

	{
		reg := New(failingSource{err: apperr.PermissionDenied(nil)}, MatchFirst, names)
		_, err := reg.FindPeerByName(context.Background(), "ESP32_Alerta")
		require.ErrorIs(t, err, apperr.ErrPermissionDenied)
	}
}

func TestIsConnected_QueriesLinkLive(t *testing.T) {
	common.SetTestLoggerNop()

	reg := New(NewStaticSource("ESP32_Alerta=127.0.0.1:9000"), MatchFirst, names)
	assert.False(t, reg.IsConnected(RoleController), "no link attached yet")

	link := &flagLink{}
	reg.Attach(RoleController, link)

	assert.False(t, reg.IsConnected(RoleController))
	link.connected.Store(true)
	assert.True(t, reg.IsConnected(RoleController))
	link.connected.Store(false)
	assert.False(t, reg.IsConnected(RoleController))
	assert.Equal(t, int32(3), link.calls.Load())
}

func TestResolveAndPeers(t *testing.T) {
	common.SetTestLoggerNop()

	reg := New(NewStaticSource("ESP32_Alerta=127.0.0.1:9000;S22+ de Perik24=127.0.0.1:9001"), MatchFirst, names)
	link := &flagLink{}
	link.connected.Store(true)
	reg.Attach(RoleController, link)

	dev, err := reg.Resolve(context.Background(), RoleController)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", dev.Path)

	peers := reg.Peers()
	require.Len(t, peers, 2)
	assert.Equal(t, RoleController, peers[0].Role)
	assert.Equal(t, "ESP32_Alerta", peers[0].Identity)
	assert.True(t, peers[0].IsConnected)
	require.NotNil(t, peers[0].Device)
	assert.Equal(t, RoleCompanionPhone, peers[1].Role)
	assert.False(t, peers[1].IsConnected)
	assert.Nil(t, peers[1].Device)

	reg.Forget(RoleController)
	assert.Nil(t, reg.Peers()[0].Device)
}
