package nettransport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/link"
	"liyu1981.xyz/alerta-mesh/pkg/registry"
	_ "liyu1981.xyz/alerta-mesh/pkg/testing"
)

func freeAddr(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestLinkOverTCP(t *testing.T) {
	common.SetTestLoggerNop()

	addr := freeAddr(t)
	server := link.New("companion", New(addr))
	client := link.New("companion", New(""))

	accepted := make(chan error, 1)
	go func() {
		_, err := server.Listen(context.Background())
		accepted <- err
	}()
	assert.Eventually(t, func() bool { return server.State() == link.StateListening }, time.Second, 5*time.Millisecond)

	// The listener opens right after the state flips, so retry the dial briefly.
	assert.Eventually(t, func() bool {
		return client.Connect(context.Background(), registry.Device{Path: addr, Address: addr, Name: "phone"}) == nil
	}, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, <-accepted)

	assert.True(t, server.IsServer())
	assert.False(t, client.IsServer())

	got := make(chan string, 1)
	_, err := server.Subscribe(func(line string) { got <- line })
	require.NoError(t, err)

	require.NoError(t, client.WriteLine(`{"alerta":{}}`))
	select {
	case line := <-got:
		assert.Equal(t, `{"alerta":{}}`, line)
	case <-time.After(2 * time.Second):
		t.Fatal("line not received")
	}

	client.Disconnect()
	assert.Eventually(t, func() bool { return !server.IsConnected() }, 2*time.Second, 10*time.Millisecond)
}

func TestAcceptCancelled(t *testing.T) {
	common.SetTestLoggerNop()

	tr := New(freeAddr(t))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, _, err := tr.Accept(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDialRefused(t *testing.T) {
	common.SetTestLoggerNop()

	addr := freeAddr(t)
	conn, err := New("").Dial(context.Background(), registry.Device{Path: addr})
	assert.Nil(t, conn)
	require.Error(t, err)
}
