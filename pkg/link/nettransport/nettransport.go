// Package nettransport carries the serial link over TCP. It stands in for
// RFCOMM when peers are emulated on a LAN or in tests.
package nettransport

import (
	"context"
	"errors"
	"io"
	"net"

	"go.uber.org/zap"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/registry"
)

type Transport struct {
	// ListenAddr is where Accept listens, e.g. ":7070".
	ListenAddr string
	Dialer     net.Dialer

	logger *zap.Logger
}

func New(listenAddr string) *Transport {
	return &Transport{
		ListenAddr: listenAddr,
		logger:     common.GetLoggerWith(common.LoggerNameLink, zap.String("transport", common.TransportTCP)),
	}
}

// Dial connects to dev.Path, which holds host:port.
func (t *Transport) Dial(ctx context.Context, dev registry.Device) (io.ReadWriteCloser, error) {
	conn, err := t.Dialer.DialContext(ctx, "tcp", dev.Path)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("Dialed", zap.String("remote", conn.RemoteAddr().String()))
	return conn, nil
}

// Accept listens on ListenAddr for one connection and closes the listener
// once it arrives or ctx is done.
func (t *Transport) Accept(ctx context.Context) (io.ReadWriteCloser, registry.Device, error) {
	if t.ListenAddr == "" {
		return nil, registry.Device{}, errors.New("tcp listen address not configured")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", t.ListenAddr)
	if err != nil {
		return nil, registry.Device{}, err
	}
	defer ln.Close()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	t.logger.Debug("Accepting", zap.String("addr", ln.Addr().String()))
	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, registry.Device{}, ctx.Err()
		}
		return nil, registry.Device{}, err
	}

	remote := conn.RemoteAddr().String()
	return conn, registry.Device{Path: remote, Address: remote, Name: remote}, nil
}
