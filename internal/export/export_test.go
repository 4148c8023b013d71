package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialkit/internal/logger"
	"trialkit/internal/version"
	"trialkit/pkg/trialtypes"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func sessionFixture() *trialtypes.SessionRecord {
	nan := math.NaN()
	return &trialtypes.SessionRecord{
		Session:       "m1",
		Frames:        1000,
		RewardEvents:  1,
		HasBoundaries: true,
		MeanShift:     4,
		MedianShift:   4,
		Trials: []trialtypes.Trial{
			{Number: 1, RawIndex: 10, OnsetIndex: 6, Shift: 4, Threshold: 0.25, Rewarded: true, RewardIndex: 12, Epoch: trialtypes.EpochBaseline, InRange: false},
			{Number: 2, RawIndex: 500, OnsetIndex: 500, RewardIndex: -1, Epoch: trialtypes.EpochStim, InRange: true},
		},
		Traces: []trialtypes.TraceSet{
			{Position: []float64{nan, 1, 2}, Licking: []float64{nan, 0, 1}, Reward: []float64{nan, 0, 0}},
			{Position: []float64{3, 4, 5}, Licking: []float64{0, 0, 0}, Reward: []float64{1, 1, 1}},
		},
		RewardedTrials: 1,
		EpochCounts: map[trialtypes.Epoch]trialtypes.EpochCounts{
			trialtypes.EpochBaseline: {Trials: 1, Rewarded: 1},
			trialtypes.EpochStim:     {Trials: 1},
		},
	}
}

func TestWriteSessionTrials(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	e := NewExporter(dir)

	path, err := e.WriteSessionTrials(sessionFixture())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "m1_trials.csv"), path)

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, trialHeader, rows[0])
	assert.Equal(t, []string{"1", "10", "6", "4", "0.25", "true", "12", "baseline", "false"}, rows[1])
	assert.Equal(t, []string{"2", "500", "500", "0", "0", "false", "-1", "stim", "true"}, rows[2])
}

func TestWriteSessionTraces(t *testing.T) {
	e := NewExporter(t.TempDir())

	paths, err := e.WriteSessionTraces(sessionFixture())
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, "m1_position.csv", filepath.Base(paths[0]))
	assert.Equal(t, "m1_licking.csv", filepath.Base(paths[1]))
	assert.Equal(t, "m1_reward.csv", filepath.Base(paths[2]))

	rows := readCSV(t, paths[0])
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"trial", "-1", "0", "1"}, rows[0])
	assert.Equal(t, []string{"1", "", "1", "2"}, rows[1])
	assert.Equal(t, []string{"2", "3", "4", "5"}, rows[2])
}

func TestWriteEphysRecord(t *testing.T) {
	e := NewExporter(t.TempDir())
	rec := &trialtypes.EphysRecord{
		Cell: "cell01",
		Results: map[trialtypes.Condition]trialtypes.ConditionResult{
			{WavelengthNM: 590, HoldingMV: 0}:   {Present: false, Baseline: math.NaN(), Peak: math.NaN(), Amplitude: math.NaN(), PeakIndex: -1},
			{WavelengthNM: 470, HoldingMV: -70}: {Present: true, Baseline: 1, Peak: -9, Amplitude: -10, PeakIndex: 1003},
		},
	}

	path, err := e.WriteEphysRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, "cell01_ephys.csv", filepath.Base(path))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"470nm_-70mV", "470", "-70", "true", "1", "-9", "-10", "1003"}, rows[1])
	assert.Equal(t, []string{"590nm_0mV", "590", "0", "false", "", "", "", "-1"}, rows[2])
}

func TestSummaryRoundTrip(t *testing.T) {
	e := NewExporter(t.TempDir())
	started := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	second := sessionFixture()
	second.Session = "m2"
	second.MeanShift = 8
	summary := NewBehaviorSummary("run-1", started, "trialkit.yaml", []*trialtypes.SessionRecord{sessionFixture(), second})

	assert.Equal(t, 2, summary.Totals.Records)
	assert.Equal(t, 4, summary.Totals.Trials)
	assert.Equal(t, 2, summary.Totals.RewardedTrials)
	assert.InDelta(t, 6.0, summary.Totals.MeanSessionShift, 1e-9)
	assert.InDelta(t, 1.0, summary.Sessions[0].Epochs["baseline"].Rate, 1e-9)
	assert.InDelta(t, 0.0, summary.Sessions[0].Epochs["post_stim"].Rate, 1e-9)

	path, err := e.WriteSummary(summary)
	require.NoError(t, err)
	assert.Equal(t, SummaryFileName, filepath.Base(path))

	loaded, err := ReadSummary(path)
	require.NoError(t, err)
	assert.Equal(t, summary, loaded)
}

func TestEphysSummary(t *testing.T) {
	rec := &trialtypes.EphysRecord{
		Cell: "c1",
		Results: map[trialtypes.Condition]trialtypes.ConditionResult{
			{WavelengthNM: 470, HoldingMV: -70}: {Present: true, Amplitude: -12},
			{WavelengthNM: 470, HoldingMV: 0}:   {Present: false, Amplitude: math.NaN()},
		},
	}

	summary := NewEphysSummary("run-2", time.Now(), "", []*trialtypes.EphysRecord{rec})
	require.Len(t, summary.Cells, 1)
	assert.Equal(t, 1, summary.Cells[0].Present)
	assert.Equal(t, map[string]float64{"470nm_-70mV": -12}, summary.Cells[0].Amplitudes)
	assert.Equal(t, "ephys", summary.Kind)
}

func TestReadSummaryRejectsIncompatibleVersion(t *testing.T) {
	e := NewExporter(t.TempDir())
	summary := NewEphysSummary("run-3", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "", nil)
	summary.Version = "99.0.0"

	path, err := e.WriteSummary(summary)
	require.NoError(t, err)

	_, err = ReadSummary(path)
	assert.ErrorIs(t, err, ErrIncompatibleSummary)
}

func TestReadSummaryWarnsOnNewerPatch(t *testing.T) {
	var logs bytes.Buffer
	logger.SetOutput(&logs)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	e := NewExporter(t.TempDir())
	summary := NewEphysSummary("run-4", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "", nil)
	summary.Version = semver.MustParse(version.GetVersion()).IncPatch().String()

	path, err := e.WriteSummary(summary)
	require.NoError(t, err)

	loaded, err := ReadSummary(path)
	require.NoError(t, err)
	assert.Equal(t, summary.Version, loaded.Version)
	assert.Contains(t, logs.String(), "Summary written by a newer trialkit")
}

type failingCloser struct {
	bytes.Buffer
}

func (f *failingCloser) Close() error {
	return errors.New("disk full")
}

func TestWriteReportsCloseError(t *testing.T) {
	e := NewExporter(t.TempDir())
	e.create = func(string) (io.WriteCloser, error) {
		return &failingCloser{}, nil
	}

	path, err := e.WriteSessionTrials(sessionFixture())
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, path)

	_, err = e.WriteSummary(NewEphysSummary("run-5", time.Now(), "", nil))
	assert.ErrorContains(t, err, "failed to close summary.yaml")
}
