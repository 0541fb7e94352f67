// Package progress turns section coverage into completion percentages.
// It is pure and stateless; callers fetch sections and coverage first.
package progress

import (
	"math"

	"auditflow/internal/model"
)

// Compute builds a ProgressSnapshot from the active technical sections
// and the set of section ids that have at least one document.
//
// Zero active sections yields 0% for both percentages. Complete is true
// iff every mandatory section is covered, which also holds when there
// are no mandatory sections at all.
func Compute(sections []model.TechnicalSection, covered map[int64]struct{}) model.ProgressSnapshot {
	snap := model.ProgressSnapshot{}
	for _, sec := range sections {
		if !sec.Active {
			continue
		}
		snap.TotalSections++
		_, has := covered[sec.ID]
		if has {
			snap.CoveredSections++
		}
		if sec.Mandatory {
			snap.MandatoryTotal++
			if has {
				snap.MandatoryCovered++
			}
		}
	}

	snap.PercentAll = percent(snap.CoveredSections, snap.TotalSections)
	snap.PercentMandatory = percent(snap.MandatoryCovered, snap.MandatoryTotal)
	snap.Complete = snap.MandatoryCovered == snap.MandatoryTotal
	return snap
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
