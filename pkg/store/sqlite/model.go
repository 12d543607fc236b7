package sqlite

import (
	"time"

	"github.com/agentstation/casesync/pkg/cases"
)

// caseRow is the persisted form of a case. Seq preserves insertion order
// across replacements.
type caseRow struct {
	CaseID                int64     `gorm:"primaryKey;autoIncrement:false"`
	DeviceID              int64     `gorm:"primaryKey;autoIncrement:false"`
	Seq                   int64     `gorm:"not null;index"`
	ModificationTime      time.Time `gorm:"not null"`
	FirstRevisionCaseID   int64
	FirstRevisionDeviceID int64
	Author                int64  `gorm:"index"`
	Classification        string `gorm:"size:128"`
	Status                string `gorm:"size:64"`
	Description           string `gorm:"type:text"`
	Priority              *int16
	TimeOfCrime           *time.Time
}

// TableName overrides the gorm default.
func (caseRow) TableName() string { return "cases" }

func toRow(c cases.Case) caseRow {
	row := caseRow{
		CaseID:                c.CaseID,
		DeviceID:              c.DeviceID,
		ModificationTime:      c.ModificationTime.UTC(),
		FirstRevisionCaseID:   c.FirstRevisionCaseID,
		FirstRevisionDeviceID: c.FirstRevisionDeviceID,
		Author:                c.Author,
		Classification:        c.Classification,
		Status:                c.Status,
		Description:           c.Description,
	}
	if c.Priority != nil {
		p := *c.Priority
		row.Priority = &p
	}
	if c.TimeOfCrime != nil {
		t := c.TimeOfCrime.UTC()
		row.TimeOfCrime = &t
	}
	return row
}

func (r caseRow) toCase() cases.Case {
	c := cases.Case{
		CaseID:                r.CaseID,
		DeviceID:              r.DeviceID,
		ModificationTime:      cases.NewTimestamp(r.ModificationTime),
		FirstRevisionCaseID:   r.FirstRevisionCaseID,
		FirstRevisionDeviceID: r.FirstRevisionDeviceID,
		Author:                r.Author,
		Classification:        r.Classification,
		Status:                r.Status,
		Description:           r.Description,
	}
	if r.Priority != nil {
		p := *r.Priority
		c.Priority = &p
	}
	if r.TimeOfCrime != nil {
		c.TimeOfCrime = cases.At(*r.TimeOfCrime)
	}
	return c
}

func toCases(rows []caseRow) []cases.Case {
	out := make([]cases.Case, len(rows))
	for i, r := range rows {
		out[i] = r.toCase()
	}
	return out
}
