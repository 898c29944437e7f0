package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/moodjournal/internal/config"
	"github.com/patric-chuzhbe/moodjournal/internal/db/jsondb"
	"github.com/patric-chuzhbe/moodjournal/internal/models"
	"github.com/patric-chuzhbe/moodjournal/internal/session"
)

func TestGetAvailableStorageType(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want int
	}{
		{name: "postgres wins", cfg: config.Config{DatabaseDSN: "dsn", MongoURI: "mongodb://x", DBFileName: "f.json"}, want: models.StorageTypePostgresql},
		{name: "mongo before file", cfg: config.Config{MongoURI: "mongodb://x", DBFileName: "f.json"}, want: models.StorageTypeMongo},
		{name: "file", cfg: config.Config{DBFileName: "f.json"}, want: models.StorageTypeFile},
		{name: "memory", cfg: config.Config{}, want: models.StorageTypeMemory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getAvailableStorageType(&tt.cfg))
		})
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.New(config.WithDisableFlagsParsing(true))
	require.NoError(t, err)
	cfg.RunAddr = freeAddr(t)
	cfg.DBFileName = filepath.Join(t.TempDir(), "journal.json")
	cfg.BcryptCost = 4
	return cfg
}

func TestNewSelectsFileAndMemorySession(t *testing.T) {
	cfg := newTestConfig(t)

	app, err := New(cfg)
	require.NoError(t, err)
	defer app.Close()

	assert.IsType(t, &jsondb.JSONDB{}, app.db)
	assert.IsType(t, &session.MemoryStore{}, app.sessionStore)
	assert.Nil(t, app.publisher)

	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, app.closeResources())
}

func TestServeShutsDownOnCancel(t *testing.T) {
	cfg := newTestConfig(t)

	app, err := New(cfg)
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Serve(ctx)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + cfg.RunAddr + "/ping")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}
