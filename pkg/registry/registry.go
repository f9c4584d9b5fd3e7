// Package registry resolves the two logical peers of the node (the ESP32
// controller and the companion phone) against the devices already bonded at
// the platform level. Pairing itself happens outside the app.
package registry

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/common"
)

// Device is a bonded device as seen by a transport. Path is what the
// transport dials: a BlueZ object path, or host:port for TCP.
type Device struct {
	Path    string `json:"path"`
	Address string `json:"address"`
	Name    string `json:"name"`
	Alias   string `json:"alias,omitempty"`
}

type BondedSource interface {
	BondedDevices(ctx context.Context) ([]Device, error)
}

type Role string

const (
	RoleController     Role = "controller"
	RoleCompanionPhone Role = "companion"
)

var Roles = []Role{RoleController, RoleCompanionPhone}

func (r Role) Valid() bool {
	return r == RoleController || r == RoleCompanionPhone
}

type MatchPolicy string

const (
	// MatchFirst takes the first bonded device with the name.
	MatchFirst MatchPolicy = common.PeerMatchFirst
	// MatchStrict refuses a name shared by several bonded devices.
	MatchStrict MatchPolicy = common.PeerMatchStrict
)

// Connectivity is the live view of a peer link.
type Connectivity interface {
	IsConnected() bool
}

type PeerConnection struct {
	Role        Role    `json:"role"`
	Identity    string  `json:"identity"`
	IsConnected bool    `json:"isConnected"`
	Device      *Device `json:"device,omitempty"`
}

type Registry struct {
	source BondedSource
	policy MatchPolicy
	names  map[Role]string

	mu       sync.Mutex
	links    map[Role]Connectivity
	resolved map[Role]Device
}

func New(source BondedSource, policy MatchPolicy, names map[Role]string) *Registry {
	return &Registry{
		source:   source,
		policy:   policy,
		names:    names,
		links:    make(map[Role]Connectivity),
		resolved: make(map[Role]Device),
	}
}

func (r *Registry) Name(role Role) string {
	return r.names[role]
}

// FindPeerByName scans the bonded devices for an exact name match.
func (r *Registry) FindPeerByName(ctx context.Context, name string) (Device, error) {
	logger := common.GetLoggerWith(common.LoggerNameRegistry, zap.String(common.LoggerFieldPeer, name))

	devices, err := r.source.BondedDevices(ctx)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return Device{}, err
		}
		return Device{}, apperr.ConnectionFailed(name, err)
	}

	matches := common.Filter(devices, func(d Device) bool { return d.Name == name })

	switch {
	case len(matches) == 0:
		logger.Info("Peer not bonded", zap.Int("bonded", len(devices)))
		return Device{}, apperr.DeviceNotFound(name)
	case len(matches) > 1 && r.policy == MatchStrict:
		logger.Warn("Ambiguous peer name rejected", zap.Int("matches", len(matches)))
		return Device{}, apperr.AmbiguousPeer(name, len(matches))
	case len(matches) > 1:
		logger.Warn("Ambiguous peer name, using first match",
			zap.Int("matches", len(matches)),
			zap.String("address", matches[0].Address))
	}

	return matches[0], nil
}

// Resolve finds the bonded device for role by its configured name.
func (r *Registry) Resolve(ctx context.Context, role Role) (Device, error) {
	dev, err := r.FindPeerByName(ctx, r.names[role])
	if err != nil {
		return Device{}, err
	}

	r.mu.Lock()
	r.resolved[role] = dev
	r.mu.Unlock()

	return dev, nil
}

// Remember records dev as the peer behind role, for connections that were
// accepted rather than resolved.
func (r *Registry) Remember(role Role, dev Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved[role] = dev
}

// Attach registers the link whose state IsConnected reports for role.
func (r *Registry) Attach(role Role, link Connectivity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[role] = link
}

// Forget drops the resolved device of role, e.g. after a disconnect.
func (r *Registry) Forget(role Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resolved, role)
}

// IsConnected asks the link every time; nothing is cached.
func (r *Registry) IsConnected(role Role) bool {
	r.mu.Lock()
	link := r.links[role]
	r.mu.Unlock()

	if link == nil {
		return false
	}
	return link.IsConnected()
}

func (r *Registry) Peers() []PeerConnection {
	return common.Mapper(Roles, func(role Role) PeerConnection {
		r.mu.Lock()
		dev, ok := r.resolved[role]
		r.mu.Unlock()

		peer := PeerConnection{
			Role:        role,
			Identity:    r.names[role],
			IsConnected: r.IsConnected(role),
		}
		if ok {
			peer.Device = &dev
		}
		return peer
	})
}

// StaticSource serves a fixed bonded list, used with the TCP transport where
// "bonding" is the configured name=host:port table.
type StaticSource struct {
	Devices []Device
}

func NewStaticSource(peers string) *StaticSource {
	return &StaticSource{
		Devices: common.Mapper(common.ParsePairs(peers), func(p [2]string) Device {
			return Device{Path: p[1], Address: p[1], Name: p[0]}
		}),
	}
}

func (s *StaticSource) BondedDevices(ctx context.Context) ([]Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]Device(nil), s.Devices...), nil
}
