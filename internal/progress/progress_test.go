package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"auditflow/internal/model"
)

func sec(id int64, mandatory, active bool) model.TechnicalSection {
	return model.TechnicalSection{ID: id, Mandatory: mandatory, Active: active}
}

func coveredSet(ids ...int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		sections []model.TechnicalSection
		covered  map[int64]struct{}
		want     model.ProgressSnapshot
	}{
		{
			name:     "zero active sections yields zero percentages",
			sections: nil,
			covered:  coveredSet(),
			want: model.ProgressSnapshot{
				Complete: true, // no mandatory sections to satisfy
			},
		},
		{
			name: "inactive sections are ignored",
			sections: []model.TechnicalSection{
				sec(1, true, false),
				sec(2, false, false),
			},
			covered: coveredSet(1, 2),
			want: model.ProgressSnapshot{
				Complete: true,
			},
		},
		{
			name: "partial coverage",
			sections: []model.TechnicalSection{
				sec(1, true, true),
				sec(2, true, true),
				sec(3, false, true),
			},
			covered: coveredSet(1, 3),
			want: model.ProgressSnapshot{
				TotalSections:    3,
				CoveredSections:  2,
				MandatoryTotal:   2,
				MandatoryCovered: 1,
				PercentAll:       67,
				PercentMandatory: 50,
				Complete:         false,
			},
		},
		{
			name: "all mandatory covered means complete",
			sections: []model.TechnicalSection{
				sec(1, true, true),
				sec(2, true, true),
				sec(3, false, true),
			},
			covered: coveredSet(1, 2),
			want: model.ProgressSnapshot{
				TotalSections:    3,
				CoveredSections:  2,
				MandatoryTotal:   2,
				MandatoryCovered: 2,
				PercentAll:       67,
				PercentMandatory: 100,
				Complete:         true,
			},
		},
		{
			name: "non-mandatory coverage leaves mandatory percent at zero",
			sections: []model.TechnicalSection{
				sec(1, true, true),
				sec(2, false, true),
			},
			covered: coveredSet(2),
			want: model.ProgressSnapshot{
				TotalSections:    2,
				CoveredSections:  1,
				MandatoryTotal:   1,
				MandatoryCovered: 0,
				PercentAll:       50,
				PercentMandatory: 0,
				Complete:         false,
			},
		},
		{
			name: "rounding",
			sections: []model.TechnicalSection{
				sec(1, false, true),
				sec(2, false, true),
				sec(3, false, true),
			},
			covered: coveredSet(1),
			want: model.ProgressSnapshot{
				TotalSections:   3,
				CoveredSections: 1,
				PercentAll:      33,
				Complete:        true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.sections, tt.covered)
			assert.Equal(t, tt.want, got)
		})
	}
}
