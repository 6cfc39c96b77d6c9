package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barrybecker4/applets-sub001/internal/cache"
	"github.com/barrybecker4/applets-sub001/internal/search"
)

const minimal = `{
  "jwt": {"accessSecret": "0123456789abcdef0123456789abcdef"},
  "clients": [{"id": "bot", "secretHash": "$2b$10$abcdefghijklmnopqrstuv"}]
}`

func TestParseLayersOverDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, 9029, cfg.Server.Port)
	assert.Equal(t, search.NegaMax, cfg.Search.Strategy)
	assert.True(t, cfg.Search.AlphaBeta)
	assert.Equal(t, cache.PolicyLRU, cfg.Cache.Policy)
	assert.True(t, cfg.CacheStore.InMemory)
	assert.Equal(t, "$2b$10$abcdefghijklmnopqrstuv", cfg.Clients[0].SecretHash, "bcrypt hashes are not expanded")
	assert.Equal(t, time.Hour, cfg.AccessTTL())
	assert.Equal(t, "0.0.0.0:9029", cfg.Addr())
}

func TestParseExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_MONGO_URI", "mongodb://db:27017")
	cfg, err := Parse([]byte(`{
	  "mongodb": {"uri": "${TEST_MONGO_URI}", "database": "x"},
	  "jwt": {"accessSecret": "0123456789abcdef0123456789abcdef"},
	  "search": {"lookAhead": 5, "quiescence": true}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoDB.URI)
	assert.Equal(t, 5, cfg.Search.LookAhead)
	assert.True(t, cfg.Search.Quiescence)
	assert.True(t, cfg.Search.AlphaBeta, "fields the file omits keep their defaults")
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.JWT.AccessSecret = "short"
	cfg.Clients = []Client{{ID: "a", SecretHash: "h"}, {ID: "a", SecretHash: "h"}, {ID: "b"}}
	cfg.Search.Strategy = "alphazero"
	cfg.Cache.Policy = "fifo"
	cfg.CacheStore.InMemory = false
	cfg.RateLimit.Burst = 0

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"server.port",
		"accessSecret",
		`client "a" is listed twice`,
		`client "b" has no secretHash`,
		"search:",
		"cache:",
		"cacheStore.path",
		"rateLimit",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestAnalysisConfig(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)
	cfg.Analysis.SessionTTLMinutes = 3
	cfg.Analysis.ProgressMillis = 250
	cfg.Analysis.MaxLookAhead = 7

	a := cfg.AnalysisConfig()
	assert.Equal(t, 3*time.Minute, a.SessionTTL)
	assert.Equal(t, 250*time.Millisecond, a.ProgressInterval)
	assert.Equal(t, 7, a.MaxLookAhead)
	assert.Equal(t, cfg.Search, a.Search)
}

func TestLoadReadsConfigDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.test.json"), []byte(minimal), 0o600))
	t.Setenv("CONFIG_DIR", dir)

	cfg, err := Load("test")
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Environment)

	_, err = Load("missing")
	assert.Error(t, err)
}

func TestDevConfigIsValid(t *testing.T) {
	t.Setenv("CONFIG_DIR", filepath.Join("..", "..", "configs"))
	t.Setenv("MONGODB_URI", "")
	cfg, err := Load("dev")
	require.NoError(t, err)
	assert.Equal(t, "dev-client", cfg.Clients[0].ID)
	assert.Empty(t, cfg.MongoDB.URI)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("SEARCH_ENV", "")
	assert.Equal(t, "dev", GetEnv())
	t.Setenv("SEARCH_ENV", "prod")
	assert.Equal(t, "prod", GetEnv())
}
