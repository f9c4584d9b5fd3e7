package relay

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/link"
	"liyu1981.xyz/alerta-mesh/pkg/metrics"
	"liyu1981.xyz/alerta-mesh/pkg/registry"
)

// Session owns the two peer links of the node and keeps the receiver bound
// to the companion link while it is up.
type Session struct {
	relay      *Relay
	registry   *registry.Registry
	controller *link.Link
	companion  *link.Link
	perms      PermissionChecker
	logger     *zap.Logger

	mu     sync.Mutex
	unbind func()
}

type SessionStatus struct {
	Peers           []registry.PeerConnection `json:"peers"`
	ControllerState string                    `json:"controllerState"`
	CompanionState  string                    `json:"companionState"`
	CompanionServer bool                      `json:"companionServer"`
}

// NewSession wires the links into the relay and the registry. perms may be
// nil when the transport needs no permission.
func NewSession(r *Relay, reg *registry.Registry, controller, companion *link.Link, perms PermissionChecker) *Session {
	r.Controller = controller
	r.Companion = companion
	reg.Attach(registry.RoleController, controller)
	reg.Attach(registry.RoleCompanionPhone, companion)

	controller.SetStateObserver(func(s link.State) { metrics.SetLinkState(string(registry.RoleController), int(s)) })
	companion.SetStateObserver(func(s link.State) { metrics.SetLinkState(string(registry.RoleCompanionPhone), int(s)) })
	companion.OnLineError(func(err error) {
		metrics.RecordAlertReceived("parse_error")
		r.report(err)
	})

	return &Session{
		relay:      r,
		registry:   reg,
		controller: controller,
		companion:  companion,
		perms:      perms,
		logger: common.GetLoggerWith(
			common.LoggerNameRelay,
			zap.String(common.LoggerFieldAlertaCategory, common.LoggerCategorySession),
		),
	}
}

func (s *Session) Relay() *Relay {
	return s.relay
}

func (s *Session) checkPermission(ctx context.Context) error {
	if s.perms == nil {
		return nil
	}
	if err := s.perms.CheckPermission(ctx); err != nil {
		if errors.Is(err, apperr.ErrPermissionDenied) {
			return err
		}
		return apperr.PermissionDenied(err)
	}
	return nil
}

// fail reports err to the user and hands it back.
func (s *Session) fail(op string, err error) error {
	s.logger.Warn("Session operation failed", zap.String("op", op), zap.Error(err))
	s.relay.report(err)
	return err
}

func (s *Session) connect(ctx context.Context, role registry.Role, l *link.Link) error {
	op := "connect_" + string(role)

	if err := s.checkPermission(ctx); err != nil {
		return s.fail(op, err)
	}

	dev, err := s.registry.Resolve(ctx, role)
	if err != nil {
		return s.fail(op, err)
	}

	if err := l.Connect(ctx, dev); err != nil {
		s.registry.Forget(role)
		return s.fail(op, err)
	}

	s.logger.Info("Peer connected", zap.String("role", string(role)), zap.String("address", dev.Address))
	return nil
}

func (s *Session) ConnectController(ctx context.Context) error {
	return s.connect(ctx, registry.RoleController, s.controller)
}

func (s *Session) ConnectCompanion(ctx context.Context) error {
	if err := s.connect(ctx, registry.RoleCompanionPhone, s.companion); err != nil {
		return err
	}
	return s.bind()
}

// ListenCompanion waits for the companion phone to connect to us. It is
// cancelled by ctx or CancelListen; cancellation is not reported as a notice.
func (s *Session) ListenCompanion(ctx context.Context) (registry.Device, error) {
	const op = "listen_companion"

	if err := s.checkPermission(ctx); err != nil {
		return registry.Device{}, s.fail(op, err)
	}

	dev, err := s.companion.Listen(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Info("Listen cancelled")
			return registry.Device{}, err
		}
		return registry.Device{}, s.fail(op, err)
	}

	s.registry.Remember(registry.RoleCompanionPhone, dev)
	s.logger.Info("Companion accepted", zap.String("address", dev.Address))
	return dev, s.bind()
}

func (s *Session) CancelListen() bool {
	return s.companion.CancelListen()
}

// bind subscribes the receiver to the companion link once. The subscription
// outlives a dropped connection and ends with Disconnect.
func (s *Session) bind() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unbind != nil {
		return nil
	}
	unbind, err := s.companion.Subscribe(func(line string) {
		_ = s.relay.HandleInbound(line)
	})
	if err != nil {
		return s.fail("bind_receiver", err)
	}
	s.unbind = unbind
	return nil
}

func (s *Session) Disconnect(role registry.Role) error {
	switch role {
	case registry.RoleController:
		s.controller.Disconnect()
	case registry.RoleCompanionPhone:
		s.mu.Lock()
		if s.unbind != nil {
			s.unbind()
			s.unbind = nil
		}
		s.mu.Unlock()
		s.companion.Disconnect()
	default:
		return apperr.Validation("Rol desconocido: " + string(role))
	}

	s.registry.Forget(role)
	s.logger.Info("Peer disconnected", zap.String("role", string(role)))
	return nil
}

func (s *Session) Status() SessionStatus {
	return SessionStatus{
		Peers:           s.registry.Peers(),
		ControllerState: s.controller.State().String(),
		CompanionState:  s.companion.State().String(),
		CompanionServer: s.companion.IsServer(),
	}
}

// Close drops both links.
func (s *Session) Close() {
	_ = s.Disconnect(registry.RoleController)
	_ = s.Disconnect(registry.RoleCompanionPhone)
}
