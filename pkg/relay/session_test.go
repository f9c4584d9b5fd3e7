package relay

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"liyu1981.xyz/alerta-mesh/pkg/alerta"
	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/link"
	"liyu1981.xyz/alerta-mesh/pkg/models"
	"liyu1981.xyz/alerta-mesh/pkg/registry"
	"liyu1981.xyz/alerta-mesh/pkg/relay/mocks"
)

type pipeTransport struct {
	remote   chan net.Conn
	incoming chan registry.Device
}

func newPipeTransport() *pipeTransport {
	return &pipeTransport{
		remote:   make(chan net.Conn, 4),
		incoming: make(chan registry.Device, 1),
	}
}

func (p *pipeTransport) Dial(ctx context.Context, dev registry.Device) (io.ReadWriteCloser, error) {
	a, b := net.Pipe()
	p.remote <- b
	return a, nil
}

func (p *pipeTransport) Accept(ctx context.Context) (io.ReadWriteCloser, registry.Device, error) {
	select {
	case <-ctx.Done():
		return nil, registry.Device{}, ctx.Err()
	case dev := <-p.incoming:
		a, b := net.Pipe()
		p.remote <- b
		return a, dev, nil
	}
}

// recordingNotifier is safe to use from link reader goroutines.
type recordingNotifier struct {
	mu       sync.Mutex
	received []models.AlertRecord
	reported []error
}

func (n *recordingNotifier) AlertReceived(record models.AlertRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, record)
}

func (n *recordingNotifier) Report(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reported = append(n.reported, err)
}

func (n *recordingNotifier) receivedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.received)
}

type sessionFixture struct {
	session   *Session
	store     *alerta.Alerta
	notifier  *recordingNotifier
	transport *pipeTransport
}

func newSessionFixture(t *testing.T, perms PermissionChecker) sessionFixture {
	common.SetTestLoggerNop()

	store := getMemoryAlerta(t)
	notifier := &recordingNotifier{}
	tr := newPipeTransport()

	reg := registry.New(
		registry.NewStaticSource("ESP32_Alerta=esp32:1;S22+ de Perik24=phone:1"),
		registry.MatchFirst,
		map[registry.Role]string{
			registry.RoleController:     common.DefaultControllerName,
			registry.RoleCompanionPhone: common.DefaultCompanionName,
		},
	)

	r := New(store.History, nil, nil, notifier)
	s := NewSession(r, reg, link.New("controller", tr), link.New("companion", tr), perms)
	t.Cleanup(s.Close)

	return sessionFixture{session: s, store: store, notifier: notifier, transport: tr}
}

func TestSession_SendReachesConnectedPeers(t *testing.T) {
	f := newSessionFixture(t, nil)

	require.NoError(t, f.session.ConnectController(context.Background()))
	esp32 := <-f.transport.remote
	require.NoError(t, f.session.ConnectCompanion(context.Background()))
	phone := <-f.transport.remote

	esp32Line := make(chan string, 1)
	phoneLine := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(esp32).ReadString('\n')
		esp32Line <- line
	}()
	go func() {
		line, _ := bufio.NewReader(phone).ReadString('\n')
		phoneLine <- line
	}()

	report, err := f.session.Relay().SendAlert(context.Background(), AlertRequest{
		Type:     "Robo",
		Message:  "Se detectó un intento de robo",
		Priority: models.PriorityAlta,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, report.Controller)
	assert.Equal(t, OutcomeSent, report.Companion)

	assert.Equal(t, "Alta\n", <-esp32Line)

	p, err := DecodePayload(<-phoneLine)
	require.NoError(t, err)
	assert.Equal(t, "Robo", p.Alerta.Tipo)
	require.Len(t, p.Historial, 1)
	assert.Equal(t, report.Record.ID, p.Historial[0].ID)

	status := f.session.Status()
	assert.Equal(t, "connected", status.ControllerState)
	assert.Equal(t, "connected", status.CompanionState)
	assert.False(t, status.CompanionServer)
	for _, peer := range status.Peers {
		assert.True(t, peer.IsConnected, peer.Role)
	}
}

func TestSession_CompanionLinesReplaceHistory(t *testing.T) {
	f := newSessionFixture(t, nil)

	require.NoError(t, f.session.ConnectCompanion(context.Background()))
	phone := <-f.transport.remote

	_, err := io.WriteString(phone,
		`{"alerta":{"tipo":"Gas","mensaje":"Fuga","fecha":"2024-05-01T12:30:00.000Z","prioridad":"Media"},`+
			`"historial":[{"Id":5,"TIPO_ALERTA":"Gas","MENSAJE":"Fuga","FECHA":"2024-05-01T12:30:00.000Z","PRIORIDAD":"Media"}]}`+"\r\n")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return f.notifier.receivedCount() == 1 }, time.Second, 5*time.Millisecond)

	all, err := f.store.History.ListAlerts()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, uint(5), all[0].ID)
}

func TestSession_OversizeCompanionLineIsReported(t *testing.T) {
	f := newSessionFixture(t, nil)

	require.NoError(t, f.session.ConnectCompanion(context.Background()))
	phone := <-f.transport.remote

	_, err := io.WriteString(phone, "{\"historial\":\""+strings.Repeat("x", 1<<20)+"\"}\n")
	require.NoError(t, err)
	_, err = io.WriteString(phone,
		`{"alerta":{"tipo":"Gas","mensaje":"Fuga","fecha":"2024-05-01T12:30:00.000Z","prioridad":"Media"},"historial":[]}`+"\n")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return f.notifier.receivedCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	f.notifier.mu.Lock()
	require.Len(t, f.notifier.reported, 1)
	assert.ErrorIs(t, f.notifier.reported[0], apperr.ErrPayloadParse)
	f.notifier.mu.Unlock()
	assert.Equal(t, "connected", f.session.Status().CompanionState)
}

func TestSession_ListenMakesCompanionRelayOnly(t *testing.T) {
	f := newSessionFixture(t, nil)

	phoneDev := registry.Device{Path: "phone", Address: "11:22:33:44:55:66", Name: common.DefaultCompanionName}
	f.transport.incoming <- phoneDev

	dev, err := f.session.ListenCompanion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, phoneDev, dev)
	<-f.transport.remote

	assert.True(t, f.session.Status().CompanionServer)

	report, err := f.session.Relay().SendAlert(context.Background(), AlertRequest{Type: "Robo", Priority: models.PriorityAlta})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefused, report.Companion)
	assert.Equal(t, OutcomeSkipped, report.Controller)
}

func TestSession_CancelListen(t *testing.T) {
	f := newSessionFixture(t, nil)

	done := make(chan error, 1)
	go func() {
		_, err := f.session.ListenCompanion(context.Background())
		done <- err
	}()

	assert.Eventually(t, func() bool { return f.session.Status().CompanionState == "listening" }, time.Second, 5*time.Millisecond)

	_, err := f.session.ListenCompanion(context.Background())
	require.ErrorIs(t, err, apperr.ErrAlreadyListening)

	assert.True(t, f.session.CancelListen())
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, "idle", f.session.Status().CompanionState)
}

func TestSession_PermissionDenied(t *testing.T) {
	ctrl := gomock.NewController(t)
	perms := mocks.NewMockPermissionChecker(ctrl)
	perms.EXPECT().CheckPermission(gomock.Any()).Return(errors.New("org.freedesktop.DBus.Error.AccessDenied")).Times(2)

	f := newSessionFixture(t, perms)

	err := f.session.ConnectController(context.Background())
	require.ErrorIs(t, err, apperr.ErrPermissionDenied)

	_, err = f.session.ListenCompanion(context.Background())
	require.ErrorIs(t, err, apperr.ErrPermissionDenied)

	f.notifier.mu.Lock()
	assert.Len(t, f.notifier.reported, 2)
	f.notifier.mu.Unlock()
}

func TestSession_UnbondedPeer(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.session.registry = registry.New(registry.NewStaticSource(""), registry.MatchFirst, map[registry.Role]string{
		registry.RoleController: common.DefaultControllerName,
	})

	err := f.session.ConnectController(context.Background())
	require.ErrorIs(t, err, apperr.ErrDeviceNotFound)
	assert.False(t, f.session.controller.IsConnected())
}

func TestSession_DisconnectUnbindsReceiver(t *testing.T) {
	f := newSessionFixture(t, nil)

	require.NoError(t, f.session.ConnectCompanion(context.Background()))
	<-f.transport.remote

	require.NoError(t, f.session.Disconnect(registry.RoleCompanionPhone))
	assert.Equal(t, "disconnected", f.session.Status().CompanionState)

	require.NoError(t, f.session.ConnectCompanion(context.Background()), "receiver binds again after reconnect")
	<-f.transport.remote

	err := f.session.Disconnect(registry.Role("router"))
	require.ErrorIs(t, err, apperr.ErrValidation)
}
