package mcp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-exam-reader/internal/config"
)

// freePort asks the kernel for an unused TCP port.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServer_Run_BatchModeDoesNotServe(t *testing.T) {
	f := newFixture(t)
	f.server.config.Mode = config.ModeBatch

	err := f.server.Run(context.Background())
	assert.ErrorContains(t, err, `mode "batch" does not serve MCP`)
}

func TestServer_Run_ServerMode(t *testing.T) {
	f := newFixture(t)
	f.server.config.Mode = config.ModeServer
	f.server.config.Host = "127.0.0.1"
	f.server.config.Port = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Run(ctx) }()

	url := fmt.Sprintf("http://%s/sse", f.server.config.Address())
	require.Eventually(t, func() bool {
		client := &http.Client{Timeout: 200 * time.Millisecond}
		resp, err := client.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 50*time.Millisecond, "SSE endpoint should come up")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestServer_Run_ServerModePortInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	f := newFixture(t)
	f.server.config.Mode = config.ModeServer
	f.server.config.Host = "127.0.0.1"
	f.server.config.Port = l.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = f.server.Run(ctx)
	assert.ErrorContains(t, err, "failed to serve SSE")
}
