package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barrybecker4/applets-sub001/internal/geometry"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyzeFindsWin(t *testing.T) {
	out, err := run(t, "analyze", "--moves", "0,0 1,0 0,1 1,1", "--json")
	require.NoError(t, err)

	var report analyzeReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.NotNil(t, report.BestMove)
	assert.Equal(t, geometry.Location{Row: 0, Col: 2}, report.BestMove.To)
	assert.Positive(t, report.Value)
	assert.Positive(t, report.MovesConsidered)
	assert.Contains(t, report.Cache, "policy=lru")
}

func TestAnalyzeEveryStrategy(t *testing.T) {
	for _, s := range []string{"minimax", "negamax", "negascout", "mtd"} {
		t.Run(s, func(t *testing.T) {
			out, err := run(t, "analyze", "-s", s, "--moves", "(0,0);(1,1);(0,1)")
			require.NoError(t, err)
			assert.Contains(t, out, "best move:")
			assert.Contains(t, out, "(0,2)", "O must block")
		})
	}
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	_, err := run(t, "analyze", "--moves", "0,0 0,0")
	assert.Error(t, err)

	_, err = run(t, "analyze", "--moves", "0,0 1,0 0,1 1,1 0,2")
	assert.ErrorContains(t, err, "already over")

	_, err = run(t, "analyze", "-s", "alphazero")
	assert.Error(t, err)

	_, err = run(t, "analyze", "--rows", "2", "--cols", "2")
	assert.Error(t, err)
}

func TestSelfPlayPerfectTicTacToeDraws(t *testing.T) {
	out, err := run(t, "selfplay", "-d", "9", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "draw")
}

func TestCacheStatsReadsSavedSnapshot(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "analyze", "--moves", "1,1", "--save-cache", dir)
	require.NoError(t, err)

	out, err := run(t, "cache-stats", "--store", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "SNAPSHOT")
	assert.Contains(t, out, "3x3k3")

	_, err = run(t, "cache-stats")
	assert.Error(t, err)
}
