package behavior

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/montanaflynn/stats"

	"trialkit/internal/config"
	"trialkit/internal/logger"
	"trialkit/internal/table"
	"trialkit/pkg/trialtypes"
)

// Channel names used for behavior tables.
const (
	ChannelState    = "state"
	ChannelReward   = "reward"
	ChannelLicking  = "licking"
	ChannelPosition = "position"
)

// Processor runs the per-file trial extraction pipeline.
type Processor struct {
	cfg        config.BehaviorConfig
	boundaries BoundaryTable
	aligner    Aligner
	log        *log.Logger
}

// NewProcessor creates a processor for the given settings and boundary table.
func NewProcessor(cfg config.BehaviorConfig, boundaries BoundaryTable) *Processor {
	if boundaries == nil {
		boundaries = BoundaryTable{}
	}
	return &Processor{
		cfg:        cfg,
		boundaries: boundaries,
		aligner: Aligner{
			PreWindow:  cfg.PreWindow,
			HalfWindow: cfg.HalfWindow,
			Thresholds: cfg.Thresholds,
		},
		log: logger.NewStyledLogger("Behavior"),
	}
}

// Layout returns the CSV layout for behavior files.
func (p *Processor) Layout() table.Layout {
	return table.Layout{
		HeaderRows: p.cfg.HeaderRows,
		Columns: map[string]int{
			ChannelState:    p.cfg.StateColumn,
			ChannelReward:   p.cfg.RewardColumn,
			ChannelLicking:  p.cfg.LickColumn,
			ChannelPosition: p.cfg.PositionColumn,
		},
	}
}

// SessionKey derives the session key from a file path (its base name
// without extension).
func SessionKey(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ErrDuplicateSession is returned when two input files map to one session key.
var ErrDuplicateSession = errors.New("duplicate session key")

// CheckSessionKeys fails when two paths share a session key, since their
// records would overwrite each other in the run store and the exports.
func CheckSessionKeys(paths []string) error {
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		key := SessionKey(path)
		if first, dup := seen[key]; dup {
			return fmt.Errorf("%w %q: %s and %s", ErrDuplicateSession, key, first, path)
		}
		seen[key] = path
	}
	return nil
}

// ProcessFiles processes each path in order and returns the records of the
// files that could be analysed. Missing files are skipped silently; files
// that fail to parse are logged and skipped.
func (p *Processor) ProcessFiles(paths []string) []*trialtypes.SessionRecord {
	records := make([]*trialtypes.SessionRecord, 0, len(paths))
	for _, path := range paths {
		rec, err := p.ProcessFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.FileSkipped(path, "missing")
				continue
			}
			p.log.Error("Failed to process session", "file", path, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// ProcessFile loads one behavior CSV and extracts its session record.
func (p *Processor) ProcessFile(path string) (*trialtypes.SessionRecord, error) {
	tbl, err := table.ReadFile(path, p.Layout())
	if err != nil {
		return nil, err
	}
	rec := p.Process(SessionKey(path), tbl)
	rec.Path = path
	return rec, nil
}

// Process runs the pipeline on an already loaded table: trim, segment,
// match rewards, align, cut traces, classify epochs and summarise.
func (p *Processor) Process(session string, tbl *table.Table) *trialtypes.SessionRecord {
	tbl.Head(p.cfg.TrimFrames())

	state := tbl.Column(ChannelState)
	reward := tbl.Column(ChannelReward)
	licking := tbl.Column(ChannelLicking)
	position := tbl.Column(ChannelPosition)

	raw := DetectTrials(state, trialtypes.RobotState(p.cfg.TransitionFrom), trialtypes.RobotState(p.cfg.TransitionTo))
	rises := DetectRewardRises(reward)
	matches := MatchRewards(raw, rises, p.cfg.RewardTolerance)

	boundary, hasBoundary := p.boundaries.Lookup(session)
	var windows EpochWindows
	if hasBoundary {
		windows = boundary.Windows(p.cfg.SampleRate, p.cfg.EpochFrames())
	} else {
		p.log.Debug("No stimulation boundaries", "session", session)
	}

	rec := &trialtypes.SessionRecord{
		Session:       session,
		Frames:        tbl.Rows(),
		Trials:        make([]trialtypes.Trial, len(raw)),
		Traces:        make([]trialtypes.TraceSet, len(raw)),
		RewardEvents:  len(rises),
		HasBoundaries: hasBoundary,
	}

	for i, idx := range raw {
		onset := p.aligner.Align(position, idx)
		traces, inRange := p.aligner.Cut(position, licking, reward, onset.Index)

		epoch := trialtypes.EpochNone
		if hasBoundary {
			epoch = windows.Classify(idx)
		}

		rec.Trials[i] = trialtypes.Trial{
			Number:      i,
			RawIndex:    idx,
			OnsetIndex:  onset.Index,
			Shift:       onset.Shift,
			Threshold:   onset.Threshold,
			Rewarded:    matches[i].Rewarded,
			RewardIndex: matches[i].RewardIndex,
			Epoch:       epoch,
			InRange:     inRange,
		}
		rec.Traces[i] = traces
	}

	Summarize(rec)
	p.log.Info("Session processed", "session", session, "trials", len(raw), "rewarded", rec.RewardedTrials)
	return rec
}

// Summarize fills the aggregate counts and shift statistics of a record from
// its trials. Shift statistics only include trials whose onset was detected.
func Summarize(rec *trialtypes.SessionRecord) {
	rec.RewardedTrials = 0
	rec.EpochCounts = make(map[trialtypes.Epoch]trialtypes.EpochCounts, len(trialtypes.Epochs))
	for _, e := range trialtypes.Epochs {
		rec.EpochCounts[e] = trialtypes.EpochCounts{}
	}

	var shifts stats.Float64Data
	for _, tr := range rec.Trials {
		if tr.Rewarded {
			rec.RewardedTrials++
		}
		if tr.Epoch != trialtypes.EpochNone {
			c := rec.EpochCounts[tr.Epoch]
			c.Trials++
			if tr.Rewarded {
				c.Rewarded++
			}
			rec.EpochCounts[tr.Epoch] = c
		}
		if tr.Threshold > 0 {
			shifts = append(shifts, float64(tr.Shift))
		}
	}

	rec.MeanShift, rec.MedianShift = 0, 0
	if len(shifts) > 0 {
		rec.MeanShift, _ = shifts.Mean()
		rec.MedianShift, _ = shifts.Median()
	}
}
