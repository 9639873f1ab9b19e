package issues

import (
	"encoding/json"

	"github.com/roeyazroel/linear-ide/internal/linearapi"
)

// Filter narrows the assigned issue list. An empty field is absent.
// Filters are values: replace them wholesale, never patch one in place.
type Filter struct {
	CycleID   string `json:"cycleId,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	TeamID    string `json:"teamId,omitempty"`
}

// IsEmpty reports whether no field is set.
func (f Filter) IsEmpty() bool {
	return f == Filter{}
}

// Key returns the cache fingerprint of f. Equal filters produce equal keys.
func (f Filter) Key() string {
	// Field order is fixed by the struct, so the encoding is canonical.
	b, err := json.Marshal(f)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// predicate translates f into equality constraints. Absent fields are omitted.
func (f Filter) predicate() linearapi.IssueFilter {
	p := linearapi.IssueFilter{}
	if f.CycleID != "" {
		p["cycle"] = eq(f.CycleID)
	}
	if f.ProjectID != "" {
		p["project"] = eq(f.ProjectID)
	}
	if f.TeamID != "" {
		p["team"] = eq(f.TeamID)
	}
	return p
}

func eq(id string) map[string]interface{} {
	return map[string]interface{}{"id": map[string]interface{}{"eq": id}}
}
