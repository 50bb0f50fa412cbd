package models

import "time"

// GradingSchema is a named, activatable set of percentage bands plus a pass
// threshold. At most one schema is active system-wide; the aggregator reads
// only the active one.
type GradingSchema struct {
	ID             string       `db:"id" json:"id"`
	Name           string       `db:"name" json:"name"`
	PassPercentage float64      `db:"pass_percentage" json:"pass_percentage"`
	IsActive       bool         `db:"is_active" json:"is_active"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
	Ranges         []GradeRange `json:"grade_ranges"`
}

// GradeRange maps a percentage interval to a letter grade and grade point.
// Position preserves insertion order; grade lookup is a linear scan in that
// order and the first matching range wins, so overlapping ranges never let a
// later band shadow an earlier one.
type GradeRange struct {
	ID            string  `db:"id" json:"id"`
	SchemaID      string  `db:"schema_id" json:"schema_id"`
	Grade         string  `db:"grade" json:"grade"`
	MinPercentage float64 `db:"min_percentage" json:"min_percentage"`
	MaxPercentage float64 `db:"max_percentage" json:"max_percentage"`
	GradePoint    float64 `db:"grade_point" json:"grade_point"`
	Position      int     `db:"position" json:"position"`
}

// Match returns the first range, in stored order, covering the percentage.
func (s *GradingSchema) Match(percentage float64) (GradeRange, bool) {
	for _, r := range s.Ranges {
		if percentage >= r.MinPercentage && percentage <= r.MaxPercentage {
			return r, true
		}
	}
	return GradeRange{}, false
}

// FailingGrade returns the grade of the band with the lowest grade point,
// conventionally the lowest band ("F"). Ties resolve to the later band.
func (s *GradingSchema) FailingGrade() string {
	if len(s.Ranges) == 0 {
		return ""
	}
	fail := s.Ranges[0]
	for _, r := range s.Ranges[1:] {
		if r.GradePoint <= fail.GradePoint {
			fail = r
		}
	}
	return fail.Grade
}
