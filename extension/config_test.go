package extension

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("POINTS_COOLDOWN", "1m")
	t.Setenv("POINTS_DAILY_GRANT", "25")
	t.Setenv("POINTS_STATUS_KEY", "wallet")
	t.Setenv("POINTS_STORE_DRIVER", "sqlite")
	t.Setenv("POINTS_DISABLE_MIGRATE", "true")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Cooldown)
	assert.Equal(t, int64(25), cfg.DailyGrant)
	assert.Equal(t, "wallet", cfg.StatusKey)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.True(t, cfg.DisableMigrate)
	assert.Zero(t, cfg.HookTimeout)
}

func TestLoadConfigFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("POINTS_DAILY_GRANT", "lots")

	_, err := LoadConfigFromEnv()
	require.Error(t, err)
}

func TestMergeConfigurationsPrecedence(t *testing.T) {
	primary := Config{Cooldown: time.Hour}
	fallback := Config{
		Cooldown:       time.Minute,
		DailyGrant:     5,
		StatusKey:      "wallet",
		DisableMigrate: true,
	}

	got := mergeConfigurations(primary, fallback)

	assert.Equal(t, time.Hour, got.Cooldown)
	assert.Equal(t, int64(5), got.DailyGrant)
	assert.Equal(t, "wallet", got.StatusKey)
	assert.True(t, got.DisableMigrate)
}

func TestMergeWithDefaults(t *testing.T) {
	got := mergeWithDefaults(Config{DailyGrant: 3})

	assert.Equal(t, DefaultConfig().Cooldown, got.Cooldown)
	assert.Equal(t, int64(3), got.DailyGrant)
	assert.Equal(t, "points", got.StatusKey)
	assert.Equal(t, DriverMemory, got.StoreDriver)
	assert.Equal(t, 5*time.Second, got.HookTimeout)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: DefaultConfig()},
		{name: "mongo", cfg: Config{StoreDriver: DriverMongo}},
		{name: "unknown driver", cfg: Config{StoreDriver: "firestore"}, wantErr: true},
		{name: "negative cooldown", cfg: Config{Cooldown: -time.Second}, wantErr: true},
		{name: "negative grant", cfg: Config{DailyGrant: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
