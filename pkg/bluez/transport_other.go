//go:build !linux

package bluez

import (
	"context"
	"errors"
	"io"

	"liyu1981.xyz/alerta-mesh/pkg/registry"
)

var errUnsupported = errors.New("bluez: only available on linux")

type Transport struct {
	ServiceName string
	Channel     uint16
}

func New(serviceName string) (*Transport, error) {
	return nil, errUnsupported
}

func (t *Transport) CheckPermission(ctx context.Context) error { return errUnsupported }

func (t *Transport) BondedDevices(ctx context.Context) ([]registry.Device, error) {
	return nil, errUnsupported
}

func (t *Transport) Dial(ctx context.Context, dev registry.Device) (io.ReadWriteCloser, error) {
	return nil, errUnsupported
}

func (t *Transport) Accept(ctx context.Context) (io.ReadWriteCloser, registry.Device, error) {
	return nil, registry.Device{}, errUnsupported
}

func (t *Transport) Close() error { return nil }
