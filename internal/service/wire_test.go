package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/internal/config"
	"preflight/internal/logging"
	"preflight/internal/provider"
)

func TestFromConfig_Minimal(t *testing.T) {
	cfg := config.FromEnv()
	cfg.StoreBackend = "none"
	cfg.ArchiveWeather = false
	cfg.NATSURL = ""
	cfg.DistUnit = "km"
	cfg.Policy = "legacy"

	svc, cleanup, err := FromConfig(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, svc.Archive)
	assert.Nil(t, svc.Publisher)
	assert.Equal(t, "km", svc.DefaultUnit)
	assert.Equal(t, "legacy", svc.Engine.Policy.Name)
	g, ok := svc.Gatherer.(*provider.Gatherer)
	require.True(t, ok)
	assert.Nil(t, g.Store)
}

func TestFromConfig_SQLiteStore(t *testing.T) {
	cfg := config.FromEnv()
	cfg.StoreBackend = "sqlite"
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "ref.db")
	cfg.ArchiveWeather = false
	cfg.NATSURL = ""

	svc, cleanup, err := FromConfig(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer cleanup()

	g := svc.Gatherer.(*provider.Gatherer)
	assert.NotNil(t, g.Store)
}

func TestFromConfig_Invalid(t *testing.T) {
	cfg := config.FromEnv()
	cfg.Policy = "strict"
	_, _, err := FromConfig(context.Background(), cfg, logging.Discard())
	assert.ErrorContains(t, err, "policy")

	cfg = config.FromEnv()
	cfg.StoreBackend = "none"
	cfg.NATSURL = "nats://127.0.0.1:1"
	_, _, err = FromConfig(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
}
