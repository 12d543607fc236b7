package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
	pkgsync "github.com/agentstation/casesync/pkg/sync"
)

func sample() []cases.Case {
	p := int16(3)
	return []cases.Case{{
		CaseID:           7,
		DeviceID:         2,
		Author:           4,
		Status:           "open",
		Classification:   "theft",
		Description:      strings.Repeat("x", 60),
		Priority:         &p,
		ModificationTime: cases.NewTimestamp(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
	}}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		err  bool
	}{
		{"", "", false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"wide", FormatWide, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.err {
				assert.True(t, errors.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestNewFormatter(t *testing.T) {
	assert.IsType(t, &JSONFormatter{}, NewFormatter(FormatJSON))
	assert.IsType(t, &YAMLFormatter{}, NewFormatter(FormatYAML))
	assert.IsType(t, &TableFormatter{}, NewFormatter(FormatWide))
	assert.IsType(t, &TableFormatter{}, NewFormatter("bogus"))
}

func TestCasesTable(t *testing.T) {
	narrow := CasesTable(sample(), false)
	require.Len(t, narrow.Rows, 1)
	assert.Len(t, narrow.Headers, 7)
	assert.Equal(t, "7/2", narrow.Rows[0][0])
	assert.Equal(t, "3", narrow.Rows[0][4])
	assert.Equal(t, "2024-03-01 12:00:00.000", narrow.Rows[0][5])
	assert.Len(t, narrow.Rows[0][6], 40)

	wide := CasesTable(sample(), true)
	assert.Len(t, wide.Headers, 9)
	assert.Len(t, wide.Rows[0][6], 60)
	assert.Equal(t, "0/0", wide.Rows[0][7])
	assert.Empty(t, wide.Rows[0][8])
}

func TestWriteTableAndJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, sample(), func(wide bool) Data {
		return CasesTable(sample(), wide)
	}))
	assert.Contains(t, buf.String(), "7/2")
	assert.Contains(t, strings.ToUpper(buf.String()), "CLASSIFICATION")

	buf.Reset()
	require.NoError(t, Write(&buf, FormatJSON, sample(), nil))
	var decoded []cases.Case
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, int64(4), decoded[0].Author)

	buf.Reset()
	require.NoError(t, Write(&buf, FormatYAML, sample(), nil))
	assert.Contains(t, buf.String(), "caseid: 7")
}

func TestResultTable(t *testing.T) {
	r := pkgsync.NewResult("run-1", 4, true)
	r.Added = 2
	r.Mutations = []string{"add 1/1", "add 2/1"}
	r.Finish()

	narrow := ResultTable(r, false)
	wide := ResultTable(r, true)
	assert.Equal(t, len(narrow.Rows)+2, len(wide.Rows))
	assert.Contains(t, narrow.Rows, []string{"Added", "2"})
	assert.Contains(t, narrow.Rows, []string{"Dry Run", "true"})
}

func TestTableFormatterReflection(t *testing.T) {
	type row struct {
		Name   string `json:"name"`
		Count  int    `json:"item_count,omitempty"`
		Hidden string `json:"-"`
	}

	var buf bytes.Buffer
	f := &TableFormatter{}
	require.NoError(t, f.Format(&buf, []row{{Name: "a", Count: 1, Hidden: "zzz"}}))
	out := strings.ToUpper(buf.String())
	assert.Contains(t, out, "ITEM COUNT")
	assert.NotContains(t, out, "ZZZ")

	buf.Reset()
	require.NoError(t, f.Format(&buf, row{Name: "solo"}))
	assert.Contains(t, strings.ToUpper(buf.String()), "PROPERTY")

	buf.Reset()
	require.NoError(t, f.Format(&buf, map[string]int{"k": 1}))
	assert.Contains(t, buf.String(), `"k": 1`)
}
