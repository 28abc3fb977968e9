package main

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loadtest-server/internal/config"
	"loadtest-server/internal/store"
)

func TestNewServerBoundsHeaderReads(t *testing.T) {
	srv := newServer("127.0.0.1:0", http.NotFoundHandler())
	assert.Equal(t, "127.0.0.1:0", srv.Addr)
	assert.Equal(t, readHeaderTimeout, srv.ReadHeaderTimeout)
	assert.Greater(t, int64(srv.ReadHeaderTimeout), int64(0))
}

func TestNewStore(t *testing.T) {
	st, err := newStore(config.StoreConfig{Backend: config.LocalBackend})
	require.NoError(t, err)
	assert.IsType(t, &store.LocalStore{}, st)

	st, err = newStore(config.StoreConfig{
		Backend:    config.SQLiteBackend,
		SQLitePath: filepath.Join(t.TempDir(), "runs.db"),
	})
	require.NoError(t, err)
	assert.IsType(t, &store.SQLiteStore{}, st)
	assert.NoError(t, st.Close())

	_, err = newStore(config.StoreConfig{Backend: "mongo"})
	assert.EqualError(t, err, `unknown store backend "mongo"`)
}
