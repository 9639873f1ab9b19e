package workbench

import (
	"context"
	"fmt"

	"github.com/roeyazroel/linear-ide/internal/issues"
	"github.com/roeyazroel/linear-ide/internal/logger"
)

// Outcome is the result of a user command. Failures have already been
// reported when Failed is returned.
type Outcome int

const (
	Completed Outcome = iota
	Cancelled
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

func (c *Container) fail(err error) Outcome {
	c.report(err)
	return Failed
}

// StartWork creates or checks out the suggested branch of issue.
func (c *Container) StartWork(ctx context.Context, issue issues.IssueRecord) {
	c.StartWorkOn(ctx, issue)
}

// StartWorkOn is StartWork with an Outcome.
func (c *Container) StartWorkOn(ctx context.Context, issue issues.IssueRecord) Outcome {
	name, err := c.Issues.GetBranchName(ctx, issue.ID)
	if err != nil {
		return c.fail(err)
	}
	if name == "" {
		return c.fail(fmt.Errorf("issue %s has no suggested branch name", issue.Identifier))
	}
	if !c.Branches.CreateOrCheckoutBranch(name) {
		return Failed
	}
	c.notifier.Info(fmt.Sprintf("Switched to branch %s", name))
	return Completed
}

// OpenInBrowser opens url with the system browser.
func (c *Container) OpenInBrowser(url string) {
	if url == "" {
		return
	}
	if err := c.openURL(url); err != nil {
		logger.ErrorWithErr(err, "workbench: open %s failed", url)
		c.report(fmt.Errorf("open %s: %w", url, err))
	}
}

// ShowIssue opens or foregrounds the detail panel of issue.
func (c *Container) ShowIssue(issue issues.IssueRecord) Outcome {
	if c.Webviews == nil {
		return c.fail(fmt.Errorf("detail panels are not available"))
	}
	if err := c.Webviews.Show(issue); err != nil {
		return c.fail(err)
	}
	return Completed
}

// SelectCycle filters the tree to an active cycle picked by the user.
func (c *Container) SelectCycle(ctx context.Context) Outcome {
	cycles, err := c.Issues.ListActiveCycles(ctx)
	if err != nil {
		return c.fail(err)
	}
	if len(cycles) == 0 {
		c.notifier.Info("No active cycles")
		return Cancelled
	}

	items := []PickItem{{Label: "All cycles"}}
	for _, cy := range cycles {
		item := PickItem{Label: cy.Name}
		if cy.StartsAt != nil && cy.EndsAt != nil {
			item.Detail = cy.StartsAt.Local().Format("Jan 2") + " - " + cy.EndsAt.Local().Format("Jan 2")
		}
		items = append(items, item)
	}

	idx, ok := c.prompter.Pick(ctx, "Select cycle", items)
	if !ok {
		return Cancelled
	}
	f := c.Filter()
	if idx == 0 {
		f.CycleID = ""
	} else {
		f.CycleID = cycles[idx-1].ID
	}
	c.SetFilter(f)
	return Completed
}

// SelectProject filters the tree to a project picked by the user.
func (c *Container) SelectProject(ctx context.Context) Outcome {
	projects, err := c.Issues.ListProjects(ctx)
	if err != nil {
		return c.fail(err)
	}

	items := []PickItem{{Label: "All projects"}}
	for _, p := range projects {
		items = append(items, PickItem{Label: p.Name})
	}

	idx, ok := c.prompter.Pick(ctx, "Select project", items)
	if !ok {
		return Cancelled
	}
	f := c.Filter()
	if idx == 0 {
		f.ProjectID = ""
	} else {
		f.ProjectID = projects[idx-1].ID
	}
	c.SetFilter(f)
	return Completed
}

// ClearFilter resets the filter to the configured default team.
func (c *Container) ClearFilter() Outcome {
	c.SetFilter(issues.Filter{TeamID: c.Config().DefaultTeam})
	return Completed
}

// UpdateStatus moves issue to a workflow state picked by the user.
func (c *Container) UpdateStatus(ctx context.Context, issue issues.IssueRecord) Outcome {
	states, err := c.Issues.ListWorkflowStates(ctx, issue.ID)
	if err != nil {
		return c.fail(err)
	}
	if len(states) == 0 {
		c.notifier.Warn(fmt.Sprintf("No workflow states available for %s", issue.Identifier))
		return Cancelled
	}

	items := make([]PickItem, 0, len(states))
	for _, st := range states {
		items = append(items, PickItem{Label: st.Name, Detail: string(st.Type)})
	}
	idx, ok := c.prompter.Pick(ctx, "Move "+issue.Identifier+" to", items)
	if !ok {
		return Cancelled
	}

	updated, err := c.Issues.UpdateStatus(ctx, issue.ID, states[idx].ID)
	if err != nil {
		return c.fail(err)
	}
	c.Tree.Refresh()
	c.notifier.Info(fmt.Sprintf("%s moved to %s", updated.Identifier, states[idx].Name))
	return Completed
}

// CopyBranchName copies the suggested branch name of issue to the clipboard.
func (c *Container) CopyBranchName(ctx context.Context, issue issues.IssueRecord) Outcome {
	name := issue.BranchName
	if name == "" {
		var err error
		name, err = c.Issues.GetBranchName(ctx, issue.ID)
		if err != nil {
			return c.fail(err)
		}
	}
	if err := c.copyText(name); err != nil {
		return c.fail(fmt.Errorf("copy branch name: %w", err))
	}
	c.notifier.Info("Copied " + name)
	return Completed
}

// Refresh reloads the tree from the API.
func (c *Container) Refresh() Outcome {
	c.RefreshNow()
	return Completed
}

// Login asks for an API key and signs in with it.
func (c *Container) Login(ctx context.Context) Outcome {
	token, ok := c.prompter.Input(ctx, "Linear API key", true)
	if !ok || token == "" {
		return Cancelled
	}
	user, err := c.Auth.Login(ctx, token)
	if err != nil {
		return c.fail(err)
	}
	c.notifier.Info("Signed in as " + user.Name)
	return Completed
}

// Logout signs out and forgets the stored key.
func (c *Container) Logout(ctx context.Context) Outcome {
	if !c.Auth.IsAuthenticated() {
		return Cancelled
	}
	if err := c.Auth.Logout(ctx); err != nil {
		return c.fail(err)
	}
	c.notifier.Info("Signed out of Linear")
	return Completed
}
