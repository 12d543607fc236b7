// Package filter parses the optional query parameters accepted by the case
// listing endpoint and applies them to a list of cases.
package filter

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/agentstation/casesync/pkg/cases"
)

// CaseFilter narrows a case listing. The zero value matches everything.
type CaseFilter struct {
	Status         []string
	Classification []string
	Contains       string

	MinPriority *int16

	// ModifiedAfter keeps only records modified strictly after this time.
	ModifiedAfter *cases.Timestamp

	Limit  int
	Offset int
}

// ParseCaseFilter extracts filter parameters from r. Malformed values are
// ignored.
func ParseCaseFilter(r *http.Request) CaseFilter {
	q := r.URL.Query()

	f := CaseFilter{
		Contains: q.Get("contains"),
		Limit:    parseIntOrDefault(q.Get("limit"), 0),
		Offset:   parseIntOrDefault(q.Get("offset"), 0),
	}

	if status := q.Get("status"); status != "" {
		f.Status = splitList(status)
	}
	if class := q.Get("classification"); class != "" {
		f.Classification = splitList(class)
	}

	if p := q.Get("min_priority"); p != "" {
		if i, err := strconv.ParseInt(p, 10, 16); err == nil {
			v := int16(i)
			f.MinPriority = &v
		}
	}

	if after := q.Get("modified_after"); after != "" {
		if ts, err := cases.ParseTimestamp(after); err == nil {
			f.ModifiedAfter = &ts
		}
	}

	if f.Limit < 0 {
		f.Limit = 0
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// IsZero reports whether f matches every case unchanged.
func (f CaseFilter) IsZero() bool {
	return len(f.Status) == 0 && len(f.Classification) == 0 &&
		f.Contains == "" && f.MinPriority == nil && f.ModifiedAfter == nil &&
		f.Limit == 0 && f.Offset == 0
}

// Apply returns the cases in list that match f, in their original order,
// paginated by Offset and Limit. The result is never nil.
func (f CaseFilter) Apply(list []cases.Case) []cases.Case {
	results := make([]cases.Case, 0, len(list))
	for _, c := range list {
		if f.matches(c) {
			results = append(results, c)
		}
	}

	if f.Offset > 0 {
		if f.Offset >= len(results) {
			return []cases.Case{}
		}
		results = results[f.Offset:]
	}
	if f.Limit > 0 && len(results) > f.Limit {
		results = results[:f.Limit]
	}
	return results
}

func (f CaseFilter) matches(c cases.Case) bool {
	if len(f.Status) > 0 && !containsFold(f.Status, c.Status) {
		return false
	}
	if len(f.Classification) > 0 && !containsFold(f.Classification, c.Classification) {
		return false
	}
	if f.Contains != "" && !strings.Contains(strings.ToLower(c.Description), strings.ToLower(f.Contains)) {
		return false
	}
	if f.MinPriority != nil && (c.Priority == nil || *c.Priority < *f.MinPriority) {
		return false
	}
	if f.ModifiedAfter != nil && !c.ModificationTime.After(*f.ModifiedAfter) {
		return false
	}
	return true
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseIntOrDefault parses an integer or returns def.
func parseIntOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return def
}
