package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"grouptrip.org/internal/appconf"
)

var plannerEnvKeys = []string{
	"PLANNER_ENV",
	"PLANNER_LOG_LEVEL",
	"PLANNER_DB_DRIVER",
	"PLANNER_DB_DSN",
	"PLANNER_PORT",
	"PLANNER_NATS_URL",
	"PLANNER_TIMEZONE",
	"PLANNER_REFRESH_INTERVAL",
}

func clearPlannerEnv(t *testing.T) {
	t.Helper()
	for _, key := range plannerEnvKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearPlannerEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, appconf.Development, cfg.Environment())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, ":4000", cfg.Addr())
	assert.Equal(t, DefaultRateLimit, cfg.Server.RateLimit)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, DefaultDSN, cfg.Database.DSN)
	assert.Equal(t, "UTC", cfg.Schedule.Timezone)
	assert.Equal(t, time.Minute, cfg.Schedule.RefreshInterval)
	assert.Equal(t, 3, cfg.Schedule.ExpansionDays)
	assert.Equal(t, []string{"RAIL_"}, cfg.Schedule.ExcludedTripPrefixes)
	assert.Equal(t, 3*time.Hour, cfg.Search.LookBack)
	assert.Equal(t, time.Minute, cfg.Search.WalkDuration)
	assert.Empty(t, cfg.NATS.URL)
	assert.Equal(t, "planner.snapshot.published", cfg.NATS.Subject)
	assert.True(t, cfg.MetricsEnabled())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_YAML(t *testing.T) {
	clearPlannerEnv(t)

	path := writeConfig(t, `
env: production
log_level: debug
server:
  port: 8080
  rate_limit: 5
database:
  driver: pgx
  dsn: postgres://planner@localhost:5432/planner
schedule:
  timezone: America/Los_Angeles
  refresh_interval: 30s
  expansion_days: 4
  excluded_trip_prefixes: []
search:
  look_back: 2h
  walk_duration: 90s
nats:
  url: nats://127.0.0.1:4222
  subject: city.snapshots
metrics:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, appconf.Production, cfg.Environment())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Server.RateLimit)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://planner@localhost:5432/planner", cfg.Database.DSN)
	assert.Equal(t, "America/Los_Angeles", cfg.Schedule.Timezone)
	assert.Equal(t, 30*time.Second, cfg.Schedule.RefreshInterval)
	assert.Equal(t, 4, cfg.Schedule.ExpansionDays)
	assert.Empty(t, cfg.Schedule.ExcludedTripPrefixes, "An explicit empty list disables exclusions")
	assert.Equal(t, 2*time.Hour, cfg.Search.LookBack)
	assert.Equal(t, 90*time.Second, cfg.Search.WalkDuration)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "city.snapshots", cfg.NATS.Subject)
	assert.False(t, cfg.MetricsEnabled())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearPlannerEnv(t)
	path := writeConfig(t, "server:\n  port: 8080\nschedule:\n  refresh_interval: 30s\n")

	t.Setenv("PLANNER_ENV", "test")
	t.Setenv("PLANNER_PORT", "9090")
	t.Setenv("PLANNER_DB_DRIVER", "pgx")
	t.Setenv("PLANNER_DB_DSN", "postgres://localhost/planner")
	t.Setenv("PLANNER_NATS_URL", "nats://nats:4222")
	t.Setenv("PLANNER_TIMEZONE", "America/New_York")
	t.Setenv("PLANNER_REFRESH_INTERVAL", "5m")
	t.Setenv("PLANNER_LOG_LEVEL", "WARN")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, appconf.Test, cfg.Environment())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/planner", cfg.Database.DSN)
	assert.Equal(t, "nats://nats:4222", cfg.NATS.URL)
	assert.Equal(t, "America/New_York", cfg.Schedule.Timezone)
	assert.Equal(t, 5*time.Minute, cfg.Schedule.RefreshInterval)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "bad port override",
			env:     map[string]string{"PLANNER_PORT": "eighty"},
			wantErr: "invalid PLANNER_PORT",
		},
		{
			name:    "bad refresh override",
			env:     map[string]string{"PLANNER_REFRESH_INTERVAL": "soon"},
			wantErr: "invalid PLANNER_REFRESH_INTERVAL",
		},
		{
			name:    "unknown environment",
			yaml:    "env: staging\n",
			wantErr: "env failed on the 'oneof' rule",
		},
		{
			name:    "port out of range",
			yaml:    "server:\n  port: 70000\n",
			wantErr: "server.port failed on the 'max' rule",
		},
		{
			name:    "unsupported driver",
			yaml:    "database:\n  driver: mysql\n",
			wantErr: "database.driver failed on the 'oneof' rule",
		},
		{
			name:    "postgres without dsn",
			yaml:    "database:\n  driver: pgx\n",
			wantErr: "database.dsn failed on the 'required' rule",
		},
		{
			name:    "unknown timezone",
			yaml:    "schedule:\n  timezone: Mars/Olympus_Mons\n",
			wantErr: "schedule.timezone failed on the 'timezone' rule",
		},
		{
			name:    "refresh too fast",
			yaml:    "schedule:\n  refresh_interval: 10ms\n",
			wantErr: "schedule.refresh_interval failed on the 'min' rule",
		},
		{
			name:    "too many expansion days",
			yaml:    "schedule:\n  expansion_days: 30\n",
			wantErr: "schedule.expansion_days failed on the 'max' rule",
		},
		{
			name:    "negative walk",
			yaml:    "search:\n  walk_duration: -1m\n",
			wantErr: "search.walk_duration failed on the 'min' rule",
		},
		{
			name:    "malformed yaml",
			yaml:    "server: [port\n",
			wantErr: "parsing config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearPlannerEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeConfig(t, tt.yaml)
			}

			cfg, err := Load(path)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearPlannerEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
