package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialkit/internal/testutils"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--test-mode", "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := cmd.Execute()
	return out.String(), err
}

func behaviorFile(t *testing.T) string {
	t.Helper()
	frames := make([]testutils.BehaviorFrame, 3000)
	for k := 1000; k < 1100; k++ {
		frames[k].State = 1
	}
	for k := 1050; k < 1060; k++ {
		frames[k].Reward = 1
	}
	dir := testutils.CreateTempDir(t, map[string]string{"m1.csv": testutils.BehaviorCSV(frames)})
	return filepath.Join(dir, "m1.csv")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "trialkit v")
}

func TestBehaviorRunsShow(t *testing.T) {
	testutils.ResetTestCounters()
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "behavior", behaviorFile(t), "--db", db, "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "== Run 00000001-0000-4000-8000-000000000001")
	assert.Contains(t, out, "m1")

	_, err = os.Stat(filepath.Join(outDir, "summary.yaml"))
	require.NoError(t, err)

	out, err = execute(t, "runs", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "00000001-0000-4000-8000-000000000001")
	assert.Contains(t, out, "behavior")

	out, err = execute(t, "show", "00000001-0000-4000-8000-000000000001", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "m1")

	out, err = execute(t, "show", "00000001-0000-4000-8000-000000000001", "--db", db, "--session", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "onset")

	_, err = execute(t, "show", "00000001-0000-4000-8000-000000000001", "--db", db, "--session", "nope")
	assert.Error(t, err)

	_, err = execute(t, "show", "unknown", "--db", db)
	assert.Error(t, err)
}

func TestBehaviorNoStoreNoExport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	outDir := filepath.Join(dir, "out")

	_, err := execute(t, "behavior", behaviorFile(t), "--db", db, "--out", outDir, "--no-store", "--no-export")
	require.NoError(t, err)

	_, err = os.Stat(db)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(outDir)
	assert.True(t, os.IsNotExist(err))
}

func TestEphysCommand(t *testing.T) {
	trace := make([]float64, 2000)
	for k := 1200; k < 1210; k++ {
		trace[k] = -8
	}
	root := testutils.CreateTempDir(t, map[string]string{
		"cellA/470nm_-70mV.csv": testutils.TraceCSV(trace),
	})

	out, err := execute(t, "ephys", root, "--no-store", "--no-export")
	require.NoError(t, err)
	assert.Contains(t, out, "cellA")
	assert.Contains(t, out, "-8.00")
}

func TestConfigCommand(t *testing.T) {
	path := testutils.CreateTempFile(t, "trialkit.yaml", "behavior:\n  sample_rate: 500\n")

	out, err := execute(t, "config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "sample_rate: 500")
	assert.Contains(t, out, "reward_tolerance: 500")
}

func TestUnknownOutputMode(t *testing.T) {
	_, err := execute(t, "version", "--output", "xml")
	assert.ErrorContains(t, err, "unknown output mode")
}
