// Package issues implements the cached issue service between the Linear API
// adapter and the presentation layer.
package issues

import "time"

// isoLayout is the ISO-8601 form every record timestamp is serialized in.
const isoLayout = "2006-01-02T15:04:05.000Z"

// StateType is the coarse category of a workflow state.
type StateType string

const (
	StateBacklog   StateType = "backlog"
	StateUnstarted StateType = "unstarted"
	StateStarted   StateType = "started"
	StateCompleted StateType = "completed"
	StateCanceled  StateType = "canceled"
)

// StateRef references the workflow state of an issue.
type StateRef struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Type  StateType `json:"type"`
	Color string    `json:"color"`
}

// CycleRef references the cycle of an issue. Dates are ISO-8601 strings.
type CycleRef struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	StartsAt *string `json:"startsAt,omitempty"`
	EndsAt   *string `json:"endsAt,omitempty"`
}

// ProjectRef references the project of an issue.
type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserRef references an assignee or comment author.
type UserRef struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// LabelRef references a label on an issue.
type LabelRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// IssueRecord is the plain issue representation shared by the tree and the
// detail panel. A record is never mutated after mapping.
type IssueRecord struct {
	ID            string      `json:"id"`
	Identifier    string      `json:"identifier"`
	Title         string      `json:"title"`
	Description   *string     `json:"description,omitempty"`
	Priority      int         `json:"priority"`
	PriorityLabel string      `json:"priorityLabel"`
	URL           string      `json:"url"`
	BranchName    string      `json:"branchName"`
	State         *StateRef   `json:"state,omitempty"`
	Cycle         *CycleRef   `json:"cycle,omitempty"`
	Project       *ProjectRef `json:"project,omitempty"`
	Assignee      *UserRef    `json:"assignee,omitempty"`
	Labels        []LabelRef  `json:"labels"`
	CreatedAt     string      `json:"createdAt"`
	UpdatedAt     string      `json:"updatedAt"`
}

// CommentRecord is a comment on an issue.
type CommentRecord struct {
	ID        string   `json:"id"`
	Body      string   `json:"body"`
	CreatedAt string   `json:"createdAt"`
	Author    *UserRef `json:"user,omitempty"`
}

// IssueDetailRecord is an issue with its comments in server order.
type IssueDetailRecord struct {
	IssueRecord
	Comments []CommentRecord `json:"comments"`
}

// CycleSummary is an entry of the active cycle list.
type CycleSummary struct {
	ID       string
	Name     string
	StartsAt *time.Time
	EndsAt   *time.Time
}

// ProjectSummary is an entry of the project list.
type ProjectSummary struct {
	ID   string
	Name string
}

// StateSummary is a workflow state an issue can move to.
type StateSummary struct {
	ID    string
	Name  string
	Type  StateType
	Color string
}

// FormatTime serializes t the way record timestamps are stored.
func FormatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseTime parses a record timestamp. ok is false for malformed input.
func ParseTime(s string) (t time.Time, ok bool) {
	t, err := time.Parse(isoLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, false
		}
	}
	return t, true
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}
