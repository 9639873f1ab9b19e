package linearapi

import (
	"context"
	"fmt"
	"time"

	"github.com/roeyazroel/linear-ide/internal/logger"
	"github.com/shurcooL/graphql"
)

// labelsPageSize is how many labels are selected inline with an issue.
const labelsPageSize = 50

// IssueFields are the scalar fields of an issue.
type IssueFields struct {
	ID            string
	Identifier    string
	Title         string
	Description   *string
	Priority      int
	PriorityLabel string
	URL           string
	BranchName    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// WorkflowState represents a workflow state in a Linear team.
type WorkflowState struct {
	ID       string
	Name     string
	Type     string // backlog, unstarted, started, completed, canceled
	Color    string
	Position float64
	TeamID   string
}

// Cycle represents a Linear cycle (sprint).
type Cycle struct {
	ID       string
	Name     string
	Number   int
	StartsAt *time.Time
	EndsAt   *time.Time
}

// Project represents a Linear project.
type Project struct {
	ID   string
	Name string
}

// IssueLabel represents a label that can be applied to issues.
type IssueLabel struct {
	ID    string
	Name  string
	Color string // Hex color code (e.g., "#ff0000")
}

// Comment represents a comment on a Linear issue.
type Comment struct {
	ID        string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Author    *User // nil for integrations and deleted users
	IssueID   string
}

// IssueUpdatePayload is the result of an issueUpdate mutation.
type IssueUpdatePayload struct {
	Success bool
	IssueID string
}

// RawIssue is an issue as returned by the API. Associations are resolved
// through context-aware accessors; each returns nil when the association is
// absent.
type RawIssue interface {
	Fields() IssueFields
	State(ctx context.Context) (*WorkflowState, error)
	Cycle(ctx context.Context) (*Cycle, error)
	Project(ctx context.Context) (*Project, error)
	Assignee(ctx context.Context) (*User, error)
	Labels(ctx context.Context) ([]IssueLabel, error)
}

type labelFragment struct {
	ID    graphql.String
	Name  graphql.String
	Color graphql.String
}

func (l labelFragment) toLabel() IssueLabel {
	return IssueLabel{ID: string(l.ID), Name: string(l.Name), Color: string(l.Color)}
}

type issueFragment struct {
	ID            graphql.String
	Identifier    graphql.String
	Title         graphql.String
	Description   *graphql.String
	Priority      graphql.Float
	PriorityLabel graphql.String
	URL           graphql.String
	BranchName    graphql.String
	CreatedAt     graphql.String
	UpdatedAt     graphql.String
	State         *struct {
		ID    graphql.String
		Name  graphql.String
		Type  graphql.String
		Color graphql.String
	}
	Cycle *struct {
		ID       graphql.String
		Name     *graphql.String
		Number   graphql.Float
		StartsAt *graphql.String
		EndsAt   *graphql.String
	}
	Project *struct {
		ID   graphql.String
		Name graphql.String
	}
	Assignee *userFragment
	Labels   struct {
		Nodes    []labelFragment
		PageInfo pageInfoFragment
	} `graphql:"labels(first: 50)"`
}

// IssueNode is the RawIssue implementation backed by a GraphQL response.
// State, cycle, project and assignee arrive inline; labels beyond the first
// page are loaded on demand.
type IssueNode struct {
	fields     IssueFields
	state      *WorkflowState
	cycle      *Cycle
	project    *Project
	assignee   *User
	labels     []IssueLabel
	labelsPage PageInfo
	client     *Client
}

func (c *Client) newIssueNode(f issueFragment) *IssueNode {
	node := &IssueNode{
		fields: IssueFields{
			ID:            string(f.ID),
			Identifier:    string(f.Identifier),
			Title:         string(f.Title),
			Priority:      int(f.Priority),
			PriorityLabel: string(f.PriorityLabel),
			URL:           string(f.URL),
			BranchName:    string(f.BranchName),
			CreatedAt:     parseTime(string(f.CreatedAt)),
			UpdatedAt:     parseTime(string(f.UpdatedAt)),
		},
		labelsPage: f.Labels.PageInfo.toPageInfo(),
		client:     c,
	}

	if f.Description != nil {
		description := string(*f.Description)
		node.fields.Description = &description
	}
	if f.State != nil {
		node.state = &WorkflowState{
			ID:    string(f.State.ID),
			Name:  string(f.State.Name),
			Type:  string(f.State.Type),
			Color: string(f.State.Color),
		}
	}
	if f.Cycle != nil {
		cycle := &Cycle{
			ID:       string(f.Cycle.ID),
			Number:   int(f.Cycle.Number),
			StartsAt: parseOptionalTime(f.Cycle.StartsAt),
			EndsAt:   parseOptionalTime(f.Cycle.EndsAt),
		}
		if f.Cycle.Name != nil {
			cycle.Name = string(*f.Cycle.Name)
		}
		node.cycle = cycle
	}
	if f.Project != nil {
		node.project = &Project{ID: string(f.Project.ID), Name: string(f.Project.Name)}
	}
	if f.Assignee != nil {
		user := f.Assignee.toUser()
		node.assignee = &user
	}

	node.labels = make([]IssueLabel, 0, len(f.Labels.Nodes))
	for _, lbl := range f.Labels.Nodes {
		node.labels = append(node.labels, lbl.toLabel())
	}
	return node
}

// Fields returns the scalar issue fields.
func (n *IssueNode) Fields() IssueFields { return n.fields }

// State returns the workflow state of the issue.
func (n *IssueNode) State(ctx context.Context) (*WorkflowState, error) { return n.state, nil }

// Cycle returns the cycle of the issue.
func (n *IssueNode) Cycle(ctx context.Context) (*Cycle, error) { return n.cycle, nil }

// Project returns the project of the issue.
func (n *IssueNode) Project(ctx context.Context) (*Project, error) { return n.project, nil }

// Assignee returns the assignee of the issue.
func (n *IssueNode) Assignee(ctx context.Context) (*User, error) { return n.assignee, nil }

// Labels returns every label of the issue in API order, fetching the
// remaining pages when the inline selection was truncated.
func (n *IssueNode) Labels(ctx context.Context) ([]IssueLabel, error) {
	if !n.labelsPage.HasNextPage || n.client == nil {
		return n.labels, nil
	}

	labels := append([]IssueLabel(nil), n.labels...)
	page := n.labelsPage
	for page.HasNextPage {
		more, next, err := n.client.issueLabelsPage(ctx, n.fields.ID, page.EndCursor)
		if err != nil {
			return nil, err
		}
		labels = append(labels, more...)
		page = next
	}
	return labels, nil
}

func (c *Client) issueLabelsPage(ctx context.Context, issueID, after string) ([]IssueLabel, PageInfo, error) {
	var query struct {
		Issue struct {
			Labels struct {
				Nodes    []labelFragment
				PageInfo pageInfoFragment
			} `graphql:"labels(first: $first, after: $after)"`
		} `graphql:"issue(id: $id)"`
	}

	variables := map[string]interface{}{
		"id":    graphql.String(issueID),
		"first": graphql.Int(labelsPageSize),
		"after": afterVar(after),
	}

	if err := c.client.Query(ctx, &query, variables); err != nil {
		logger.ErrorWithErr(err, "API: IssueLabels failed for issue %s", issueID)
		return nil, PageInfo{}, fmt.Errorf("fetch labels for issue %s: %w", issueID, classify(err))
	}

	labels := make([]IssueLabel, 0, len(query.Issue.Labels.Nodes))
	for _, lbl := range query.Issue.Labels.Nodes {
		labels = append(labels, lbl.toLabel())
	}
	return labels, query.Issue.Labels.PageInfo.toPageInfo(), nil
}

// AssignedIssues returns the first page of issues assigned to the viewer
// that match filter.
func (c *Client) AssignedIssues(ctx context.Context, filter IssueFilter, first int) (*Connection[RawIssue], error) {
	if first <= 0 {
		first = 50
	}
	if filter == nil {
		filter = IssueFilter{}
	}

	fetch := func(ctx context.Context, after string) ([]RawIssue, PageInfo, error) {
		var query struct {
			Viewer struct {
				AssignedIssues struct {
					Nodes    []issueFragment
					PageInfo pageInfoFragment
				} `graphql:"assignedIssues(first: $first, after: $after, filter: $filter)"`
			}
		}

		variables := map[string]interface{}{
			"first":  graphql.Int(first),
			"after":  afterVar(after),
			"filter": filter,
		}

		if err := c.client.Query(ctx, &query, variables); err != nil {
			logger.ErrorWithErr(err, "API: AssignedIssues failed")
			return nil, PageInfo{}, fmt.Errorf("fetch assigned issues: %w", classify(err))
		}

		nodes := make([]RawIssue, 0, len(query.Viewer.AssignedIssues.Nodes))
		for _, f := range query.Viewer.AssignedIssues.Nodes {
			nodes = append(nodes, c.newIssueNode(f))
		}
		return nodes, query.Viewer.AssignedIssues.PageInfo.toPageInfo(), nil
	}

	nodes, info, err := fetch(ctx, "")
	if err != nil {
		return nil, err
	}
	return NewConnection[RawIssue](nodes, info, fetch), nil
}

// Issue fetches a single issue by its ID.
func (c *Client) Issue(ctx context.Context, id string) (RawIssue, error) {
	if id == "" {
		return nil, fmt.Errorf("fetch issue: %w", ErrNotFound)
	}

	var query struct {
		Issue *issueFragment `graphql:"issue(id: $id)"`
	}

	variables := map[string]interface{}{
		"id": graphql.String(id),
	}

	if err := c.client.Query(ctx, &query, variables); err != nil {
		logger.ErrorWithErr(err, "API: Issue failed for issue %s", id)
		return nil, fmt.Errorf("fetch issue %s: %w", id, classify(err))
	}
	if query.Issue == nil {
		return nil, fmt.Errorf("fetch issue %s: %w", id, ErrNotFound)
	}

	return c.newIssueNode(*query.Issue), nil
}

// IssueBranchName returns the suggested git branch name of an issue.
func (c *Client) IssueBranchName(ctx context.Context, id string) (string, error) {
	var query struct {
		Issue *struct {
			BranchName graphql.String
		} `graphql:"issue(id: $id)"`
	}

	variables := map[string]interface{}{
		"id": graphql.String(id),
	}

	if err := c.client.Query(ctx, &query, variables); err != nil {
		logger.ErrorWithErr(err, "API: IssueBranchName failed for issue %s", id)
		return "", fmt.Errorf("fetch branch name for issue %s: %w", id, classify(err))
	}
	if query.Issue == nil {
		return "", fmt.Errorf("fetch branch name for issue %s: %w", id, ErrNotFound)
	}
	return string(query.Issue.BranchName), nil
}

// IssueTeamID returns the id of the team owning an issue, or "" when it has none.
func (c *Client) IssueTeamID(ctx context.Context, id string) (string, error) {
	var query struct {
		Issue *struct {
			Team *struct {
				ID graphql.String
			}
		} `graphql:"issue(id: $id)"`
	}

	variables := map[string]interface{}{
		"id": graphql.String(id),
	}

	if err := c.client.Query(ctx, &query, variables); err != nil {
		logger.ErrorWithErr(err, "API: IssueTeam failed for issue %s", id)
		return "", fmt.Errorf("fetch team for issue %s: %w", id, classify(err))
	}
	if query.Issue == nil {
		return "", fmt.Errorf("fetch team for issue %s: %w", id, ErrNotFound)
	}
	if query.Issue.Team == nil {
		return "", nil
	}
	return string(query.Issue.Team.ID), nil
}

// IssueComments returns the first page of comments on an issue, oldest first.
func (c *Client) IssueComments(ctx context.Context, issueID string, first int) (*Connection[Comment], error) {
	if first <= 0 {
		first = 50
	}

	fetch := func(ctx context.Context, after string) ([]Comment, PageInfo, error) {
		var query struct {
			Issue *struct {
				Comments struct {
					Nodes []struct {
						ID        graphql.String
						Body      graphql.String
						CreatedAt graphql.String
						UpdatedAt graphql.String
						User      *userFragment
					}
					PageInfo pageInfoFragment
				} `graphql:"comments(first: $first, after: $after)"`
			} `graphql:"issue(id: $id)"`
		}

		variables := map[string]interface{}{
			"id":    graphql.String(issueID),
			"first": graphql.Int(first),
			"after": afterVar(after),
		}

		if err := c.client.Query(ctx, &query, variables); err != nil {
			logger.ErrorWithErr(err, "API: IssueComments failed for issue %s", issueID)
			return nil, PageInfo{}, fmt.Errorf("fetch comments for issue %s: %w", issueID, classify(err))
		}
		if query.Issue == nil {
			return nil, PageInfo{}, fmt.Errorf("fetch comments for issue %s: %w", issueID, ErrNotFound)
		}

		comments := make([]Comment, 0, len(query.Issue.Comments.Nodes))
		for _, node := range query.Issue.Comments.Nodes {
			comment := Comment{
				ID:        string(node.ID),
				Body:      string(node.Body),
				CreatedAt: parseTime(string(node.CreatedAt)),
				UpdatedAt: parseTime(string(node.UpdatedAt)),
				IssueID:   issueID,
			}
			if node.User != nil {
				author := node.User.toUser()
				comment.Author = &author
			}
			comments = append(comments, comment)
		}
		return comments, query.Issue.Comments.PageInfo.toPageInfo(), nil
	}

	nodes, info, err := fetch(ctx, "")
	if err != nil {
		return nil, err
	}
	return NewConnection[Comment](nodes, info, fetch), nil
}

// UpdateIssue applies input to an issue.
func (c *Client) UpdateIssue(ctx context.Context, id string, input IssueUpdateInput) (IssueUpdatePayload, error) {
	var mutation struct {
		IssueUpdate struct {
			Success graphql.Boolean
			Issue   *struct {
				ID graphql.String
			}
		} `graphql:"issueUpdate(id: $id, input: $input)"`
	}

	variables := map[string]interface{}{
		"id":    graphql.String(id),
		"input": input,
	}

	if err := c.client.Mutate(ctx, &mutation, variables); err != nil {
		logger.ErrorWithErr(err, "API: UpdateIssue failed for issue %s", id)
		return IssueUpdatePayload{}, fmt.Errorf("update issue %s: %w", id, classify(err))
	}

	payload := IssueUpdatePayload{Success: bool(mutation.IssueUpdate.Success)}
	if mutation.IssueUpdate.Issue != nil {
		payload.IssueID = string(mutation.IssueUpdate.Issue.ID)
	}
	if !payload.Success {
		logger.Error("API: UpdateIssue operation failed (success=false) for issue %s", id)
	}
	return payload, nil
}
