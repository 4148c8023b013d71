package output

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"trialkit/internal/storage"
	"trialkit/pkg/trialtypes"
)

// missing is shown for values that were not measured.
const missing = "-"

// Table renders rows under headers. Styled printers color the header row
// and use rounded borders; plain printers use ASCII borders only.
func (p *Printer) Table(headers []string, rows [][]string) {
	t := table.New().Headers(headers...).Rows(rows...)

	if p.IsStylable() {
		header := lipgloss.NewStyle().Foreground(colorHeader).Bold(true).Padding(0, 1)
		cell := lipgloss.NewStyle().Padding(0, 1)
		t = t.Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(colorMuted)).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return header
				}
				return cell
			})
	} else {
		cell := lipgloss.NewStyle().Padding(0, 1)
		t = t.Border(lipgloss.ASCIIBorder()).
			StyleFunc(func(row, col int) lipgloss.Style { return cell })
	}

	p.Println(t.String())
}

// PrintSessionTable prints one row per session. In JSON mode the records
// themselves are written.
func (p *Printer) PrintSessionTable(records []*trialtypes.SessionRecord) error {
	if p.IsJSON() {
		return p.Value(records)
	}

	headers := []string{"session", "frames", "trials", "rewarded", "rewards"}
	for _, e := range trialtypes.Epochs {
		headers = append(headers, e.String())
	}
	headers = append(headers, "mean shift", "median shift")

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := []string{
			rec.Session,
			strconv.Itoa(rec.Frames),
			strconv.Itoa(rec.TrialCount()),
			strconv.Itoa(rec.RewardedTrials),
			strconv.Itoa(rec.RewardEvents),
		}
		for _, e := range trialtypes.Epochs {
			if !rec.HasBoundaries {
				row = append(row, missing)
				continue
			}
			c := rec.EpochCounts[e]
			row = append(row, fmt.Sprintf("%d/%d", c.Rewarded, c.Trials))
		}
		row = append(row, formatNumber(rec.MeanShift), formatNumber(rec.MedianShift))
		rows = append(rows, row)
	}

	p.Table(headers, rows)
	return nil
}

// PrintTrials prints the trials of one session.
func (p *Printer) PrintTrials(trials []trialtypes.Trial) error {
	if p.IsJSON() {
		return p.Value(trials)
	}

	headers := []string{"trial", "raw", "onset", "shift", "threshold", "rewarded", "epoch"}
	rows := make([][]string, 0, len(trials))
	for _, t := range trials {
		rows = append(rows, []string{
			strconv.Itoa(t.Number),
			strconv.Itoa(t.RawIndex),
			strconv.Itoa(t.OnsetIndex),
			strconv.Itoa(t.Shift),
			formatNumber(t.Threshold),
			strconv.FormatBool(t.Rewarded),
			t.Epoch.String(),
		})
	}
	p.Table(headers, rows)
	return nil
}

// ephysJSON is the JSON form of an ephys record.
type ephysJSON struct {
	Cell       string              `json:"cell"`
	Conditions []ephysConditionRow `json:"conditions"`
}

type ephysConditionRow struct {
	Condition string   `json:"condition"`
	Present   bool     `json:"present"`
	Baseline  *float64 `json:"baseline"`
	Peak      *float64 `json:"peak"`
	Amplitude *float64 `json:"amplitude"`
	PeakIndex int      `json:"peak_index"`
}

// PrintEphysTable prints one row per cell with the amplitude of every
// condition seen in any record.
func (p *Printer) PrintEphysTable(records []*trialtypes.EphysRecord) error {
	if p.IsJSON() {
		out := make([]ephysJSON, 0, len(records))
		for _, rec := range records {
			item := ephysJSON{Cell: rec.Cell}
			for _, c := range rec.Conditions() {
				res := rec.Results[c]
				item.Conditions = append(item.Conditions, ephysConditionRow{
					Condition: c.String(),
					Present:   res.Present,
					Baseline:  finitePtr(res.Baseline),
					Peak:      finitePtr(res.Peak),
					Amplitude: finitePtr(res.Amplitude),
					PeakIndex: res.PeakIndex,
				})
			}
			out = append(out, item)
		}
		return p.Value(out)
	}

	conds := unionConditions(records)
	headers := []string{"cell"}
	for _, c := range conds {
		headers = append(headers, c.String())
	}
	headers = append(headers, "present")

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := []string{rec.Cell}
		for _, c := range conds {
			res, ok := rec.Results[c]
			if !ok || !res.Present {
				row = append(row, missing)
				continue
			}
			row = append(row, formatNumber(res.Amplitude))
		}
		row = append(row, fmt.Sprintf("%d/%d", rec.PresentCount(), len(rec.Results)))
		rows = append(rows, row)
	}

	p.Table(headers, rows)
	return nil
}

// PrintRuns prints stored runs.
func (p *Printer) PrintRuns(runs []storage.Run) error {
	if p.IsJSON() {
		return p.Value(runs)
	}
	if len(runs) == 0 {
		p.Info("No runs recorded")
		return nil
	}

	headers := []string{"id", "kind", "started", "inputs", "records"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.Kind,
			r.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.Inputs),
			strconv.Itoa(r.Records),
		})
	}
	p.Table(headers, rows)
	return nil
}

func unionConditions(records []*trialtypes.EphysRecord) []trialtypes.Condition {
	seen := map[trialtypes.Condition]bool{}
	var conds []trialtypes.Condition
	for _, rec := range records {
		for c := range rec.Results {
			if !seen[c] {
				seen[c] = true
				conds = append(conds, c)
			}
		}
	}
	sort.Slice(conds, func(i, j int) bool {
		if conds[i].WavelengthNM != conds[j].WavelengthNM {
			return conds[i].WavelengthNM < conds[j].WavelengthNM
		}
		return conds[i].HoldingMV < conds[j].HoldingMV
	})
	return conds
}

func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return missing
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
