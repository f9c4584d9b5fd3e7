// Package link is the line-oriented serial channel to one peer. A Link is
// either a client (Connect) or a server (Listen) and carries at most one
// connection and one inbound subscriber at a time.
package link

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
	"liyu1981.xyz/alerta-mesh/pkg/apperr"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/registry"
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateListening
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Transport produces raw byte streams to bonded devices. Accept serves a
// single incoming connection and stops listening afterwards.
type Transport interface {
	Dial(ctx context.Context, dev registry.Device) (io.ReadWriteCloser, error)
	Accept(ctx context.Context) (io.ReadWriteCloser, registry.Device, error)
}

const (
	maxLineSize    = 1 << 20
	readBufferSize = 64 * 1024
)

var errLineTooLong = errors.New("inbound line too long")

type Link struct {
	name      string
	transport Transport
	logger    *zap.Logger

	mu           sync.Mutex
	state        State
	conn         io.ReadWriteCloser
	peer         registry.Device
	server       bool
	cancelListen context.CancelFunc
	handler      func(line string)
	onLineError  func(err error)
	subID        uint64
	observer     func(State)

	writeMu sync.Mutex
}

// New makes an idle link. name identifies the link in logs and errors.
func New(name string, transport Transport) *Link {
	return &Link{
		name:      name,
		transport: transport,
		logger:    common.GetLoggerWith(common.LoggerNameLink, zap.String(common.LoggerFieldPeer, name)),
	}
}

// SetStateObserver installs fn to be called on every state change. fn runs
// with the link locked and must not call back into the link.
func (l *Link) SetStateObserver(fn func(State)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observer = fn
	if fn != nil {
		fn(l.state)
	}
}

func (l *Link) setState(s State) {
	if l.state == s {
		return
	}
	l.logger.Debug("State changed", zap.Stringer("from", l.state), zap.Stringer("to", s))
	l.state = s
	if l.observer != nil {
		l.observer(s)
	}
}

func (l *Link) busyErr() error {
	switch l.state {
	case StateConnected:
		return apperr.AlreadyConnected(l.name)
	case StateConnecting:
		return apperr.AlreadyConnecting(l.name)
	case StateListening:
		return apperr.AlreadyListening()
	}
	return nil
}

// Connect makes exactly one attempt to reach dev.
func (l *Link) Connect(ctx context.Context, dev registry.Device) error {
	l.mu.Lock()
	if err := l.busyErr(); err != nil {
		l.mu.Unlock()
		return err
	}
	prev := l.state
	l.setState(StateConnecting)
	l.mu.Unlock()

	l.logger.Info("Connecting", zap.String("address", dev.Address))
	conn, err := l.transport.Dial(ctx, dev)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		l.setState(prev)
		l.logger.Warn("Connect failed", zap.Error(err))
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperr.ConnectionFailed(dev.Name, err)
	}

	l.attach(conn, dev, false)
	return nil
}

// Listen waits for one incoming connection. It returns when a peer connects,
// when ctx is done or when CancelListen is called.
func (l *Link) Listen(ctx context.Context) (registry.Device, error) {
	l.mu.Lock()
	if err := l.busyErr(); err != nil {
		l.mu.Unlock()
		return registry.Device{}, err
	}
	lctx, cancel := context.WithCancel(ctx)
	defer cancel()
	prev := l.state
	l.cancelListen = cancel
	l.setState(StateListening)
	l.mu.Unlock()

	l.logger.Info("Listening")
	conn, dev, err := l.transport.Accept(lctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelListen = nil

	if err != nil {
		l.setState(prev)
		if lctx.Err() != nil {
			l.logger.Info("Listen cancelled")
			return registry.Device{}, context.Canceled
		}
		l.logger.Warn("Listen failed", zap.Error(err))
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return registry.Device{}, err
		}
		return registry.Device{}, apperr.ConnectionFailed(l.name, err)
	}

	l.attach(conn, dev, true)
	return dev, nil
}

// CancelListen abandons a pending Listen. It reports whether one was pending.
func (l *Link) CancelListen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancelListen == nil {
		return false
	}
	l.cancelListen()
	return true
}

// attach requires l.mu.
func (l *Link) attach(conn io.ReadWriteCloser, dev registry.Device, server bool) {
	l.conn = conn
	l.peer = dev
	l.server = server
	l.setState(StateConnected)
	l.logger.Info("Connected", zap.String("address", dev.Address), zap.Bool("server", server))
	go l.read(conn)
}

func (l *Link) read(conn io.ReadWriteCloser) {
	reader := bufio.NewReaderSize(conn, readBufferSize)
	var buf []byte
	oversize := false

	for {
		chunk, err := reader.ReadSlice('\n')
		if !oversize {
			if lineLen(buf, chunk) > maxLineSize {
				oversize = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			if len(buf) > 0 && !oversize {
				l.deliver(conn, string(buf))
			}
			l.drop(conn, err)
			return
		}

		if oversize {
			// the rest of the oversize line is gone, the link stays up
			oversize = false
			l.lineError(conn, apperr.PayloadParse(fmt.Errorf("%w: over %d bytes", errLineTooLong, maxLineSize)))
			continue
		}

		line := string(buf)
		buf = buf[:0]
		if !l.deliver(conn, line) {
			return
		}
	}
}

// lineLen is the size of buf+chunk without a trailing "\n" or "\r\n". A
// chunk cut right after "\r" may still end in "\r\n", so that "\r" is not
// counted yet.
func lineLen(buf, chunk []byte) int {
	n := len(buf) + len(chunk)
	if !bytes.HasSuffix(chunk, []byte("\n")) {
		if bytes.HasSuffix(chunk, []byte("\r")) {
			n--
		}
		return n
	}
	n--
	switch {
	case len(chunk) >= 2 && chunk[len(chunk)-2] == '\r':
		n--
	case len(chunk) == 1 && len(buf) > 0 && buf[len(buf)-1] == '\r':
		n--
	}
	return n
}

// deliver hands one raw line, terminator included, to the subscriber. It
// reports false once conn is no longer the current connection.
func (l *Link) deliver(conn io.ReadWriteCloser, raw string) bool {
	line := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")

	l.mu.Lock()
	current := l.conn == conn
	handler := l.handler
	l.mu.Unlock()

	if !current {
		return false
	}
	if handler == nil {
		l.logger.Debug("Dropped line without subscriber", zap.Int("size", len(line)))
		return true
	}
	handler(line)
	return true
}

func (l *Link) lineError(conn io.ReadWriteCloser, err error) {
	l.mu.Lock()
	current := l.conn == conn
	onErr := l.onLineError
	l.mu.Unlock()

	if !current {
		return
	}
	l.logger.Warn("Discarded inbound line", zap.Error(err))
	if onErr != nil {
		onErr(err)
	}
}

// drop tears down conn if it is still the current connection.
func (l *Link) drop(conn io.ReadWriteCloser, cause error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != conn {
		return false
	}
	_ = conn.Close()
	l.conn = nil
	l.server = false
	l.setState(StateDisconnected)
	l.logger.Info("Peer lost", zap.Error(cause))
	return true
}

// WriteLine sends line followed by "\n". A failed write disconnects the link.
func (l *Link) WriteLine(line string) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()

	if conn == nil {
		return apperr.NotConnected(l.name)
	}

	l.writeMu.Lock()
	_, err := io.WriteString(conn, line+"\n")
	l.writeMu.Unlock()

	if err != nil {
		l.logger.Warn("Write failed", zap.Error(err))
		l.drop(conn, err)
		return apperr.WriteFailed(l.name, err)
	}
	return nil
}

// Subscribe routes inbound lines to fn. Only one subscriber may exist; the
// returned func removes it.
func (l *Link) Subscribe(fn func(line string)) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handler != nil {
		return nil, apperr.AlreadySubscribed()
	}
	l.handler = fn
	l.subID++
	id := l.subID

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.subID == id {
			l.handler = nil
		}
	}, nil
}

// OnLineError installs fn to receive inbound lines the link had to discard,
// such as lines over the size limit. fn runs on the reader goroutine.
func (l *Link) OnLineError(fn func(err error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onLineError = fn
}

// Disconnect closes the connection, cancels a pending Listen and removes the
// subscriber.
func (l *Link) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.handler = nil
	l.subID++
	if l.cancelListen != nil {
		l.cancelListen()
	}
	if l.conn == nil {
		return
	}
	_ = l.conn.Close()
	l.conn = nil
	l.server = false
	l.setState(StateDisconnected)
	l.logger.Info("Disconnected")
}

func (l *Link) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == StateConnected
}

// IsServer reports whether the current connection was accepted by Listen.
func (l *Link) IsServer() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == StateConnected && l.server
}

func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Link) Peer() (registry.Device, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peer, l.state == StateConnected
}
