package linearapi

import (
	"context"
	"fmt"

	"github.com/roeyazroel/linear-ide/internal/logger"
	"github.com/shurcooL/graphql"
)

// Cycles returns the first page of cycles matching filter.
func (c *Client) Cycles(ctx context.Context, filter CycleFilter) (*Connection[Cycle], error) {
	if filter == nil {
		filter = CycleFilter{}
	}

	fetch := func(ctx context.Context, after string) ([]Cycle, PageInfo, error) {
		var query struct {
			Cycles struct {
				Nodes []struct {
					ID       graphql.String
					Name     *graphql.String
					Number   graphql.Float
					StartsAt *graphql.String
					EndsAt   *graphql.String
				}
				PageInfo pageInfoFragment
			} `graphql:"cycles(first: 50, after: $after, filter: $filter)"`
		}

		variables := map[string]interface{}{
			"after":  afterVar(after),
			"filter": filter,
		}

		if err := c.client.Query(ctx, &query, variables); err != nil {
			logger.ErrorWithErr(err, "API: Cycles failed")
			return nil, PageInfo{}, fmt.Errorf("list cycles: %w", classify(err))
		}

		cycles := make([]Cycle, 0, len(query.Cycles.Nodes))
		for _, node := range query.Cycles.Nodes {
			cycle := Cycle{
				ID:       string(node.ID),
				Number:   int(node.Number),
				StartsAt: parseOptionalTime(node.StartsAt),
				EndsAt:   parseOptionalTime(node.EndsAt),
			}
			if node.Name != nil {
				cycle.Name = string(*node.Name)
			}
			cycles = append(cycles, cycle)
		}
		return cycles, query.Cycles.PageInfo.toPageInfo(), nil
	}

	nodes, info, err := fetch(ctx, "")
	if err != nil {
		return nil, err
	}
	return NewConnection[Cycle](nodes, info, fetch), nil
}

// Projects returns the first page of workspace projects.
func (c *Client) Projects(ctx context.Context, first int) (*Connection[Project], error) {
	if first <= 0 {
		first = 50
	}

	fetch := func(ctx context.Context, after string) ([]Project, PageInfo, error) {
		var query struct {
			Projects struct {
				Nodes []struct {
					ID   graphql.String
					Name graphql.String
				}
				PageInfo pageInfoFragment
			} `graphql:"projects(first: $first, after: $after)"`
		}

		variables := map[string]interface{}{
			"first": graphql.Int(first),
			"after": afterVar(after),
		}

		if err := c.client.Query(ctx, &query, variables); err != nil {
			logger.ErrorWithErr(err, "API: Projects failed")
			return nil, PageInfo{}, fmt.Errorf("list projects: %w", classify(err))
		}

		projects := make([]Project, 0, len(query.Projects.Nodes))
		for _, node := range query.Projects.Nodes {
			projects = append(projects, Project{
				ID:   string(node.ID),
				Name: string(node.Name),
			})
		}
		return projects, query.Projects.PageInfo.toPageInfo(), nil
	}

	nodes, info, err := fetch(ctx, "")
	if err != nil {
		return nil, err
	}
	return NewConnection[Project](nodes, info, fetch), nil
}

// WorkflowStates returns the first page of workflow states for a team.
func (c *Client) WorkflowStates(ctx context.Context, teamID string) (*Connection[WorkflowState], error) {
	fetch := func(ctx context.Context, after string) ([]WorkflowState, PageInfo, error) {
		var query struct {
			Team struct {
				States struct {
					Nodes []struct {
						ID       graphql.String
						Name     graphql.String
						Type     graphql.String
						Color    graphql.String
						Position graphql.Float
					}
					PageInfo pageInfoFragment
				} `graphql:"states(first: 100, after: $after)"`
			} `graphql:"team(id: $teamId)"`
		}

		variables := map[string]interface{}{
			"teamId": graphql.String(teamID),
			"after":  afterVar(after),
		}

		if err := c.client.Query(ctx, &query, variables); err != nil {
			logger.ErrorWithErr(err, "API: WorkflowStates failed for team %s", teamID)
			return nil, PageInfo{}, fmt.Errorf("list workflow states for team %s: %w", teamID, classify(err))
		}

		states := make([]WorkflowState, 0, len(query.Team.States.Nodes))
		for _, node := range query.Team.States.Nodes {
			states = append(states, WorkflowState{
				ID:       string(node.ID),
				Name:     string(node.Name),
				Type:     string(node.Type),
				Color:    string(node.Color),
				Position: float64(node.Position),
				TeamID:   teamID,
			})
		}
		return states, query.Team.States.PageInfo.toPageInfo(), nil
	}

	nodes, info, err := fetch(ctx, "")
	if err != nil {
		return nil, err
	}
	return NewConnection[WorkflowState](nodes, info, fetch), nil
}
