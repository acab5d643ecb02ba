package cmd

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestServe_StartsAndShutsDown(t *testing.T) {
	isolate(t)
	port := freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, _, err := executeContext(ctx, t, "serve",
			"--host", "127.0.0.1",
			"--port", strconv.Itoa(port),
			"--history",
			"--shutdown-timeout", "2")
		done <- err
	}()

	base := "http://127.0.0.1:" + strconv.Itoa(port)
	var health struct {
		Status         string `json:"status"`
		HistoryEnabled bool   `json:"history_enabled"`
	}
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		return resp.StatusCode == http.StatusOK && json.NewDecoder(resp.Body).Decode(&health) == nil
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.HistoryEnabled)

	resp, err := http.Get(base + "/pests")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_InvalidPort(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "serve", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}
