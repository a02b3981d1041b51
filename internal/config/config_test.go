package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 7, cfg.Puzzle.QuestionsPerRun)
	assert.Equal(t, 3, cfg.Puzzle.OptionsPerRound)
	assert.Equal(t, 10*time.Minute, cfg.Puzzle.RoundTTL)
	assert.Equal(t, 48*time.Hour, cfg.Puzzle.LockTTL)
	assert.Equal(t, 10, cfg.Leaderboard.DefaultLimit)
	assert.True(t, cfg.App.AllowDateOverride())
	assert.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	t.Setenv("QUIZ_REDIS_ADDR", "redis.internal:6380")

	cfg, err := Parse([]byte(`
app:
  environment: production
store:
  backend: redis
redis:
  addr: ${QUIZ_REDIS_ADDR}
puzzle:
  round_ttl: 2m
leaderboard:
  default_limit: 25
`))
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Puzzle.RoundTTL)
	assert.Equal(t, 7, cfg.Puzzle.QuestionsPerRun)
	assert.Equal(t, 25, cfg.Leaderboard.DefaultLimit)
	assert.False(t, cfg.App.AllowDateOverride())
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown backend", "store:\n  backend: etcd\n", "unknown store backend"},
		{"too few options", "puzzle:\n  options_per_round: 1\n", "at least 2"},
		{"options exceed questions", "puzzle:\n  questions_per_run: 3\n  options_per_round: 4\n", "exceeds"},
		{"malformed yaml", "server: [", "parsing config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPostgresConnectionString(t *testing.T) {
	cfg := PostgresConfig{User: "quiz", Password: "secret", Host: "db", Port: 5432, Database: "daily"}
	assert.Equal(t, "postgres://quiz:secret@db:5432/daily?sslmode=disable", cfg.ConnectionString())
}
