package utils

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUniqueStrings(t *testing.T) {
	require.Equal(t, []string{"u2", "u1", "u3"}, UniqueStrings([]string{"u2", "u1", "u2", "u3", "u1"}))
	require.Empty(t, UniqueStrings(nil))
}

func TestChunk(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	require.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, Chunk(ids, 2))
	require.Equal(t, [][]string{ids}, Chunk(ids, 110))
	require.Nil(t, Chunk(nil, 2))
	require.Nil(t, Chunk(ids, 0))
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, "debug", parseLevel("debug").String())
	require.Equal(t, "info", parseLevel("").String())
	require.Equal(t, "info", parseLevel("nonsense").String())
}

func TestServeUntil_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ServeUntil(ctx, &http.Server{Addr: addr, Handler: http.NotFoundHandler()})
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
