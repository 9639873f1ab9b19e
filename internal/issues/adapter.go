package issues

import (
	"context"

	"github.com/roeyazroel/linear-ide/internal/linearapi"
)

// Adapter is the subset of the Linear API the service queries.
// *linearapi.Client implements it.
type Adapter interface {
	AssignedIssues(ctx context.Context, filter linearapi.IssueFilter, first int) (*linearapi.Connection[linearapi.RawIssue], error)
	Issue(ctx context.Context, id string) (linearapi.RawIssue, error)
	IssueComments(ctx context.Context, issueID string, first int) (*linearapi.Connection[linearapi.Comment], error)
	IssueBranchName(ctx context.Context, id string) (string, error)
	IssueTeamID(ctx context.Context, id string) (string, error)
	Cycles(ctx context.Context, filter linearapi.CycleFilter) (*linearapi.Connection[linearapi.Cycle], error)
	Projects(ctx context.Context, first int) (*linearapi.Connection[linearapi.Project], error)
	WorkflowStates(ctx context.Context, teamID string) (*linearapi.Connection[linearapi.WorkflowState], error)
	UpdateIssue(ctx context.Context, id string, input linearapi.IssueUpdateInput) (linearapi.IssueUpdatePayload, error)
}

var _ Adapter = (*linearapi.Client)(nil)

// ClientProvider hands out the adapter for the current credentials.
// Adapter returns ErrNotAuthenticated when there are none.
type ClientProvider interface {
	Adapter() (Adapter, error)
}

// StaticProvider always returns the same adapter.
type StaticProvider struct {
	A Adapter
}

// Adapter implements ClientProvider.
func (p StaticProvider) Adapter() (Adapter, error) {
	if p.A == nil {
		return nil, ErrNotAuthenticated
	}
	return p.A, nil
}
