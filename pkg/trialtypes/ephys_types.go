package trialtypes

import (
	"fmt"
	"sort"
)

// Condition identifies one optogenetic stimulus condition.
type Condition struct {
	WavelengthNM int `json:"wavelength_nm" yaml:"wavelength_nm" mapstructure:"wavelength_nm"`
	HoldingMV    int `json:"holding_mv" yaml:"holding_mv" mapstructure:"holding_mv"`
}

// String renders the condition the same way trace files are named.
func (c Condition) String() string {
	return fmt.Sprintf("%dnm_%dmV", c.WavelengthNM, c.HoldingMV)
}

// Inward reports whether the evoked current is expected to be inward,
// which is the case for holding potentials below 0 mV.
func (c Condition) Inward() bool {
	return c.HoldingMV < 0
}

// ConditionResult holds the measurements for one condition of one cell.
type ConditionResult struct {
	Present   bool      `json:"present" yaml:"present"`
	Baseline  float64   `json:"baseline" yaml:"baseline"`
	Peak      float64   `json:"peak" yaml:"peak"`
	Amplitude float64   `json:"amplitude" yaml:"amplitude"`
	PeakIndex int       `json:"peak_index" yaml:"peak_index"`
	Trace     []float64 `json:"-" yaml:"-"`
}

// EphysRecord is one recorded cell and its per-condition results.
type EphysRecord struct {
	Cell    string                        `json:"cell" yaml:"cell"`
	Results map[Condition]ConditionResult `json:"-" yaml:"-"`
}

// Conditions returns the record's conditions sorted by wavelength then holding.
func (r *EphysRecord) Conditions() []Condition {
	conds := make([]Condition, 0, len(r.Results))
	for c := range r.Results {
		conds = append(conds, c)
	}
	sort.Slice(conds, func(i, j int) bool {
		if conds[i].WavelengthNM != conds[j].WavelengthNM {
			return conds[i].WavelengthNM < conds[j].WavelengthNM
		}
		return conds[i].HoldingMV < conds[j].HoldingMV
	})
	return conds
}

// PresentCount returns how many conditions had a trace file.
func (r *EphysRecord) PresentCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Present {
			n++
		}
	}
	return n
}
