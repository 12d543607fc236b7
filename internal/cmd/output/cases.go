package output

import (
	"io"
	"strconv"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/constants"
	pkgsync "github.com/agentstation/casesync/pkg/sync"
)

// Write renders data in format. Table formats render table instead of
// data so each command controls its columns.
func Write(w io.Writer, format Format, data any, table func(wide bool) Data) error {
	if format.IsTable() && table != nil {
		return NewFormatter(format).Format(w, table(format == FormatWide))
	}
	return NewFormatter(format).Format(w, data)
}

// CasesTable converts a case list to table rows. The wide form adds the
// revision lineage and the full description.
func CasesTable(list []cases.Case, wide bool) Data {
	headers := []string{"Key", "Author", "Status", "Classification", "Priority", "Modified", "Description"}
	align := []Align{AlignLeft, AlignRight, AlignLeft, AlignLeft, AlignRight, AlignLeft, AlignLeft}
	if wide {
		headers = append(headers, "First Revision", "Time Of Crime")
		align = append(align, AlignLeft, AlignLeft)
	}

	rows := make([][]string, 0, len(list))
	for _, c := range list {
		desc := c.Description
		if !wide && len(desc) > 40 {
			desc = desc[:37] + "..."
		}
		row := []string{
			c.Key().String(),
			strconv.FormatInt(c.Author, 10),
			c.Status,
			c.Classification,
			priority(c.Priority),
			c.ModificationTime.Format(constants.TimeFormatLog),
			desc,
		}
		if wide {
			first := cases.Key{CaseID: c.FirstRevisionCaseID, DeviceID: c.FirstRevisionDeviceID}
			crime := ""
			if c.TimeOfCrime != nil {
				crime = c.TimeOfCrime.Format(constants.TimeFormatLog)
			}
			row = append(row, first.String(), crime)
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// ResultTable converts a sync result to a two-column summary. The wide
// form lists every mutation and push failure.
func ResultTable(r *pkgsync.Result, wide bool) Data {
	itoa := strconv.Itoa
	rows := [][]string{
		{"Run", r.RunID},
		{"User", strconv.FormatInt(r.UserID, 10)},
		{"Dry Run", strconv.FormatBool(r.DryRun)},
		{"Fetched", itoa(r.Fetched)},
		{"Local", itoa(r.Local)},
		{"Added", itoa(r.Added)},
		{"Updated", itoa(r.Updated)},
		{"Unchanged", itoa(r.Unchanged)},
		{"Local Only", itoa(r.LocalOnly)},
		{"Newer Locally", itoa(r.LocalNewer)},
		{"Applied", itoa(r.Applied)},
		{"Pushed", itoa(len(r.Pushed))},
		{"Push Failures", itoa(len(r.PushFailed))},
		{"Duration", r.Duration().String()},
	}
	if wide {
		for _, m := range r.Mutations {
			rows = append(rows, []string{"Mutation", m})
		}
		for _, f := range r.PushFailed {
			rows = append(rows, []string{"Push Failed", f.Key + ": " + f.Message})
		}
	}
	return Data{
		Headers:         []string{"Property", "Value"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft},
	}
}

func priority(p *int16) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(int64(*p), 10)
}
