// Package cases defines the case record shared by the local and remote
// replicas, its identity, and the validation and defaulting rules applied
// before records are reconciled.
package cases

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
)

// Case is one case record. Records are identified by Key; every other field
// except ModificationTime is opaque payload.
type Case struct {
	CaseID                int64      `json:"caseid" yaml:"caseid"`
	DeviceID              int64      `json:"deviceid" yaml:"deviceid"`
	ModificationTime      Timestamp  `json:"modificationtime" yaml:"modificationtime"`
	FirstRevisionCaseID   int64      `json:"firstrevisioncaseid" yaml:"firstrevisioncaseid"`
	FirstRevisionDeviceID int64      `json:"firstrevisiondeviceid" yaml:"firstrevisiondeviceid"`
	Author                int64      `json:"author" yaml:"author"`
	Classification        string     `json:"classification" yaml:"classification"`
	Status                string     `json:"status" yaml:"status"`
	Description           string     `json:"description" yaml:"description"`
	Priority              *int16     `json:"priority,omitempty" yaml:"priority,omitempty"`
	TimeOfCrime           *Timestamp `json:"timeofcrime,omitempty" yaml:"timeofcrime,omitempty"`
}

// Key is the identity of a case across replicas.
type Key struct {
	CaseID   int64
	DeviceID int64
}

// String returns "case/device".
func (k Key) String() string {
	return fmt.Sprintf("%d/%d", k.CaseID, k.DeviceID)
}

// Key returns the identity of c.
func (c Case) Key() Key {
	return Key{CaseID: c.CaseID, DeviceID: c.DeviceID}
}

// NewerThan reports whether c was modified strictly after other.
func (c Case) NewerThan(other Case) bool {
	return c.ModificationTime.After(other.ModificationTime)
}

// Clone returns a deep copy of c.
func (c Case) Clone() Case {
	out := c
	if c.Priority != nil {
		p := *c.Priority
		out.Priority = &p
	}
	if c.TimeOfCrime != nil {
		t := *c.TimeOfCrime
		out.TimeOfCrime = &t
	}
	return out
}

// Validate checks the fields required for reconciliation.
func Validate(c Case) error {
	if c.ModificationTime.IsZero() {
		return errors.NewValidationError("modificationtime", c.Key().String(), "is required")
	}
	if len(c.Description) > constants.MaxDescriptionLength {
		return errors.NewValidationError("description", len(c.Description),
			fmt.Sprintf("exceeds %d bytes", constants.MaxDescriptionLength))
	}
	return nil
}

// ValidateAll validates every record in list and returns the first failure.
func ValidateAll(list []Case) error {
	for _, c := range list {
		if err := Validate(c); err != nil {
			return err
		}
	}
	return nil
}

// CheckUnique returns the keys that occur more than once in list, sorted.
func CheckUnique(list []Case) []Key {
	seen := make(map[Key]int, len(list))
	for _, c := range list {
		seen[c.Key()]++
	}
	var dups []Key
	for k, n := range seen {
		if n > 1 {
			dups = append(dups, k)
		}
	}
	sort.Slice(dups, func(i, j int) bool {
		if dups[i].CaseID != dups[j].CaseID {
			return dups[i].CaseID < dups[j].CaseID
		}
		return dups[i].DeviceID < dups[j].DeviceID
	})
	return dups
}

// ApplyDefaults fills absent optional fields in place: TimeOfCrime becomes
// now and Priority becomes the default priority. It returns list.
func ApplyDefaults(list []Case, now time.Time) []Case {
	for i := range list {
		if list[i].TimeOfCrime == nil {
			list[i].TimeOfCrime = At(now)
		}
		if list[i].Priority == nil {
			p := constants.DefaultPriority
			list[i].Priority = &p
		}
	}
	return list
}

// KeyStrings renders keys for error messages and logs.
func KeyStrings(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

// Summary renders a one-line description of c.
func Summary(c Case) string {
	desc := c.Description
	if len(desc) > 40 {
		desc = desc[:37] + "..."
	}
	return strings.TrimSpace(fmt.Sprintf("%s [%s/%s] %s", c.Key(), c.Classification, c.Status, desc))
}
