package issues

import (
	"context"
	"fmt"

	"github.com/roeyazroel/linear-ide/internal/linearapi"
	"golang.org/x/sync/errgroup"
)

// mapConcurrency bounds how many issues are mapped at once.
const mapConcurrency = 8

// mapIssue converts a raw issue. Its associations are resolved in parallel
// and all of them must succeed.
func mapIssue(ctx context.Context, raw linearapi.RawIssue) (IssueRecord, error) {
	f := raw.Fields()

	var (
		state    *linearapi.WorkflowState
		cycle    *linearapi.Cycle
		project  *linearapi.Project
		assignee *linearapi.User
		labels   []linearapi.IssueLabel
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		state, err = raw.State(gctx)
		return err
	})
	g.Go(func() (err error) {
		cycle, err = raw.Cycle(gctx)
		return err
	})
	g.Go(func() (err error) {
		project, err = raw.Project(gctx)
		return err
	})
	g.Go(func() (err error) {
		assignee, err = raw.Assignee(gctx)
		return err
	})
	g.Go(func() (err error) {
		labels, err = raw.Labels(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return IssueRecord{}, fmt.Errorf("map issue %s: %w", f.Identifier, err)
	}

	rec := IssueRecord{
		ID:            f.ID,
		Identifier:    f.Identifier,
		Title:         f.Title,
		Description:   f.Description,
		Priority:      f.Priority,
		PriorityLabel: f.PriorityLabel,
		URL:           f.URL,
		BranchName:    f.BranchName,
		Labels:        make([]LabelRef, 0, len(labels)),
		CreatedAt:     FormatTime(f.CreatedAt),
		UpdatedAt:     FormatTime(f.UpdatedAt),
	}
	if state != nil {
		rec.State = &StateRef{ID: state.ID, Name: state.Name, Type: StateType(state.Type), Color: state.Color}
	}
	if cycle != nil {
		rec.Cycle = &CycleRef{
			ID:       cycle.ID,
			Name:     cycle.Name,
			StartsAt: formatOptionalTime(cycle.StartsAt),
			EndsAt:   formatOptionalTime(cycle.EndsAt),
		}
	}
	if project != nil {
		rec.Project = &ProjectRef{ID: project.ID, Name: project.Name}
	}
	if assignee != nil {
		rec.Assignee = mapUser(assignee)
	}
	for _, l := range labels {
		rec.Labels = append(rec.Labels, LabelRef{ID: l.ID, Name: l.Name, Color: l.Color})
	}
	return rec, nil
}

// mapIssues maps raws concurrently and keeps their order.
func mapIssues(ctx context.Context, raws []linearapi.RawIssue) ([]IssueRecord, error) {
	out := make([]IssueRecord, len(raws))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mapConcurrency)
	for i, raw := range raws {
		g.Go(func() error {
			rec, err := mapIssue(gctx, raw)
			if err != nil {
				return err
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func mapComment(c linearapi.Comment) CommentRecord {
	rec := CommentRecord{
		ID:        c.ID,
		Body:      c.Body,
		CreatedAt: FormatTime(c.CreatedAt),
	}
	if c.Author != nil {
		rec.Author = mapUser(c.Author)
	}
	return rec
}

func mapUser(u *linearapi.User) *UserRef {
	ref := &UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
	if u.AvatarURL != "" {
		avatar := u.AvatarURL
		ref.AvatarURL = &avatar
	}
	return ref
}
