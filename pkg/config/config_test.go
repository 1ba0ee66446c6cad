package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "timetabler", cfg.Database.Name)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.ProposalTTL)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.CacheTTL)
	assert.Equal(t, int64(0), cfg.Scheduler.Seed)
	assert.False(t, cfg.Scheduler.CacheEnabled)
}

func TestLoadReadsEnvironmentOverrides(t *testing.T) {
	t.Setenv("ENV", EnvProduction)
	t.Setenv("DB_PORT", "6543")
	t.Setenv("SCHEDULER_SEED", "42")
	t.Setenv("SCHEDULER_PROPOSAL_TTL", "15m")
	t.Setenv("SCHEDULER_CACHE_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, int64(42), cfg.Scheduler.Seed)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.ProposalTTL)
	assert.True(t, cfg.Scheduler.CacheEnabled)
}

func TestParseDurationFallsBack(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("bogus", time.Minute))
	assert.Equal(t, 2*time.Hour, parseDuration("2h", time.Minute))
}
