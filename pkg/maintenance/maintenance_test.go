package maintenance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchat/pkg/config"
	"pairchat/pkg/models"
	"pairchat/pkg/store"
)

func openTestStore(t *testing.T) {
	t.Helper()
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })
}

func TestRunOnce(t *testing.T) {
	openTestStore(t)
	require.NoError(t, store.SaveUser(models.User{ID: "a", ExternalKey: "x"}))

	assert.NoError(t, RunOnce(config.MaintenanceConfig{}))
	assert.NoError(t, RunOnce(config.MaintenanceConfig{Compact: true}))
}

func TestStartDisabledIsNoop(t *testing.T) {
	eff := config.EffectiveConfigResult{Config: &config.Config{}}
	cancel, err := Start(context.Background(), eff)
	require.NoError(t, err)
	cancel()
}

func TestStartRejectsInvalidCron(t *testing.T) {
	cfg := &config.Config{}
	cfg.Maintenance.Enabled = true
	cfg.Maintenance.Cron = "not a cron"
	_, err := Start(context.Background(), config.EffectiveConfigResult{Config: cfg})
	assert.Error(t, err)
}

func TestStartValidCron(t *testing.T) {
	cfg := &config.Config{}
	cfg.Maintenance.Enabled = true
	cfg.Maintenance.Cron = "*/5 * * * *"
	cancel, err := Start(context.Background(), config.EffectiveConfigResult{Config: cfg})
	require.NoError(t, err)
	cancel()
}
