// Package tree groups assigned issues by cycle for display.
package tree

import (
	"fmt"
	"slices"

	"github.com/roeyazroel/linear-ide/internal/issues"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	// NoCycleKey is the group key of issues without a cycle.
	NoCycleKey = "no-cycle"
	// BacklogName is the display name of the NoCycleKey group.
	BacklogName = "Backlog"

	dateFormat = "Jan 2"
)

// Group is one cycle with its issues in arrival order.
type Group struct {
	Key       string
	Name      string
	DateRange string
	Issues    []issues.IssueRecord
}

// Label is the group title, with the date range in parentheses when known.
func (g Group) Label() string {
	if g.DateRange == "" {
		return g.Name
	}
	return fmt.Sprintf("%s (%s)", g.Name, g.DateRange)
}

// CountLabel describes the group size, e.g. "1 issue" or "3 issues".
func (g Group) CountLabel() string {
	if len(g.Issues) == 1 {
		return "1 issue"
	}
	return fmt.Sprintf("%d issues", len(g.Issues))
}

// Build partitions list by cycle. Cycle groups are sorted by name and the
// Backlog group, when present, comes last. Empty groups are omitted.
func Build(list []issues.IssueRecord) []Group {
	var (
		cycles  []*Group
		byID    = make(map[string]*Group)
		backlog *Group
	)

	for _, rec := range list {
		if rec.Cycle == nil {
			if backlog == nil {
				backlog = &Group{Key: NoCycleKey, Name: BacklogName}
			}
			backlog.Issues = append(backlog.Issues, rec)
			continue
		}

		g, ok := byID[rec.Cycle.ID]
		if !ok {
			g = &Group{
				Key:       rec.Cycle.ID,
				Name:      cycleName(rec.Cycle),
				DateRange: dateRange(rec.Cycle),
			}
			byID[rec.Cycle.ID] = g
			cycles = append(cycles, g)
		}
		g.Issues = append(g.Issues, rec)
	}

	col := collate.New(language.English)
	slices.SortStableFunc(cycles, func(a, b *Group) int {
		return col.CompareString(a.Name, b.Name)
	})

	out := make([]Group, 0, len(cycles)+1)
	for _, g := range cycles {
		out = append(out, *g)
	}
	if backlog != nil {
		out = append(out, *backlog)
	}
	return out
}

func cycleName(c *issues.CycleRef) string {
	if c.Name == "" {
		return "Unnamed cycle"
	}
	return c.Name
}

// dateRange formats the cycle span as "Jan 1 - Jan 14" in local time.
func dateRange(c *issues.CycleRef) string {
	if c.StartsAt == nil || c.EndsAt == nil {
		return ""
	}
	start, ok := issues.ParseTime(*c.StartsAt)
	if !ok {
		return ""
	}
	end, ok := issues.ParseTime(*c.EndsAt)
	if !ok {
		return ""
	}
	return start.Local().Format(dateFormat) + " - " + end.Local().Format(dateFormat)
}
