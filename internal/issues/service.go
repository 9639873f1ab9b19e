package issues

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/roeyazroel/linear-ide/internal/linearapi"
	"github.com/roeyazroel/linear-ide/internal/logger"
)

const (
	// CacheTTL is how long a fetched issue list is served from memory.
	CacheTTL = 60 * time.Second

	// DefaultPageSize is the page size used for issue and comment queries.
	DefaultPageSize = 50

	// projectsLimit caps the project list. Projects are fetched as a single
	// page; anything past the limit is not returned.
	projectsLimit = 100
)

type cacheEntry struct {
	issues    []IssueRecord
	fetchedAt time.Time
}

// Service fetches issues through the adapter and caches assigned issue lists
// per filter. Entries expire lazily when read.
//
// Concurrent ListAssigned calls for the same uncached filter each fetch; the
// last one to finish wins the entry.
type Service struct {
	provider ClientProvider
	clock    clock.Clock
	pageSize int

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for cache expiry.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithPageSize sets the page size of issue and comment queries.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// NewService creates a Service over provider.
func NewService(provider ClientProvider, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		clock:    clock.New(),
		pageSize: DefaultPageSize,
		cache:    make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) adapter() (Adapter, error) {
	a, err := s.provider.Adapter()
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotAuthenticated
	}
	return a, nil
}

// ListAssigned returns the issues assigned to the viewer that match filter.
// A list fetched less than CacheTTL ago is returned without a remote call.
func (s *Service) ListAssigned(ctx context.Context, filter Filter) ([]IssueRecord, error) {
	key := filter.Key()

	s.mu.Lock()
	entry, ok := s.cache[key]
	s.mu.Unlock()
	if ok && s.clock.Now().Sub(entry.fetchedAt) < CacheTTL {
		logger.Debug("issues.service: cache hit key=%s count=%d", key, len(entry.issues))
		return entry.issues, nil
	}

	a, err := s.adapter()
	if err != nil {
		return nil, err
	}

	conn, err := a.AssignedIssues(ctx, filter.predicate(), s.pageSize)
	if err != nil {
		return nil, err
	}
	raws, err := drain(ctx, conn)
	if err != nil {
		return nil, err
	}
	records, err := mapIssues(ctx, raws)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = cacheEntry{issues: records, fetchedAt: s.clock.Now()}
	s.mu.Unlock()

	logger.Debug("issues.service: fetched key=%s count=%d", key, len(records))
	return records, nil
}

// GetWithComments fetches an issue and all of its comments. It is never cached.
func (s *Service) GetWithComments(ctx context.Context, issueID string) (IssueDetailRecord, error) {
	a, err := s.adapter()
	if err != nil {
		return IssueDetailRecord{}, err
	}

	raw, err := a.Issue(ctx, issueID)
	if err != nil {
		return IssueDetailRecord{}, err
	}
	rec, err := mapIssue(ctx, raw)
	if err != nil {
		return IssueDetailRecord{}, err
	}

	conn, err := a.IssueComments(ctx, issueID, s.pageSize)
	if err != nil {
		return IssueDetailRecord{}, err
	}
	comments, err := drain(ctx, conn)
	if err != nil {
		return IssueDetailRecord{}, err
	}

	detail := IssueDetailRecord{
		IssueRecord: rec,
		Comments:    make([]CommentRecord, 0, len(comments)),
	}
	for _, c := range comments {
		detail.Comments = append(detail.Comments, mapComment(c))
	}
	return detail, nil
}

// GetBranchName returns the suggested branch name of an issue.
func (s *Service) GetBranchName(ctx context.Context, issueID string) (string, error) {
	a, err := s.adapter()
	if err != nil {
		return "", err
	}
	return a.IssueBranchName(ctx, issueID)
}

// ListActiveCycles returns every active cycle. Unnamed cycles are called
// "Cycle N" after their number.
func (s *Service) ListActiveCycles(ctx context.Context) ([]CycleSummary, error) {
	a, err := s.adapter()
	if err != nil {
		return nil, err
	}

	conn, err := a.Cycles(ctx, linearapi.CycleFilter{"isActive": map[string]interface{}{"eq": true}})
	if err != nil {
		return nil, err
	}
	cycles, err := drain(ctx, conn)
	if err != nil {
		return nil, err
	}

	out := make([]CycleSummary, 0, len(cycles))
	for _, c := range cycles {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("Cycle %d", c.Number)
		}
		out = append(out, CycleSummary{ID: c.ID, Name: name, StartsAt: c.StartsAt, EndsAt: c.EndsAt})
	}
	return out, nil
}

// ListProjects returns up to 100 projects from a single page.
func (s *Service) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	a, err := s.adapter()
	if err != nil {
		return nil, err
	}

	conn, err := a.Projects(ctx, projectsLimit)
	if err != nil {
		return nil, err
	}
	if conn.HasNextPage() {
		logger.Debug("issues.service: project list truncated at %d", projectsLimit)
	}

	out := make([]ProjectSummary, 0, len(conn.Nodes))
	for _, p := range conn.Nodes {
		out = append(out, ProjectSummary{ID: p.ID, Name: p.Name})
	}
	return out, nil
}

// ListWorkflowStates returns the workflow states of the team owning an
// issue, or an empty list when the issue has no team.
func (s *Service) ListWorkflowStates(ctx context.Context, issueID string) ([]StateSummary, error) {
	a, err := s.adapter()
	if err != nil {
		return nil, err
	}

	teamID, err := a.IssueTeamID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if teamID == "" {
		return []StateSummary{}, nil
	}

	conn, err := a.WorkflowStates(ctx, teamID)
	if err != nil {
		return nil, err
	}
	states, err := drain(ctx, conn)
	if err != nil {
		return nil, err
	}

	out := make([]StateSummary, 0, len(states))
	for _, st := range states {
		out = append(out, StateSummary{ID: st.ID, Name: st.Name, Type: StateType(st.Type), Color: st.Color})
	}
	return out, nil
}

// UpdateStatus moves an issue to stateID and returns the re-fetched record.
// On success every cached list is dropped.
func (s *Service) UpdateStatus(ctx context.Context, issueID, stateID string) (IssueRecord, error) {
	a, err := s.adapter()
	if err != nil {
		return IssueRecord{}, err
	}

	payload, err := a.UpdateIssue(ctx, issueID, linearapi.IssueUpdateInput{"stateId": stateID})
	if err != nil {
		return IssueRecord{}, err
	}
	if !payload.Success {
		return IssueRecord{}, fmt.Errorf("update issue %s: %w", issueID, ErrUpdateFailed)
	}

	refetchID := payload.IssueID
	if refetchID == "" {
		refetchID = issueID
	}
	raw, err := a.Issue(ctx, refetchID)
	if err != nil {
		return IssueRecord{}, fmt.Errorf("update issue %s: %w: %w", issueID, ErrIssueNotFoundAfterUpdate, err)
	}
	rec, err := mapIssue(ctx, raw)
	if err != nil {
		return IssueRecord{}, err
	}

	s.Invalidate()
	logger.Info("issues.service: issue %s moved to state %s", rec.Identifier, stateID)
	return rec, nil
}

// Invalidate drops every cached list.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cache = make(map[string]cacheEntry)
	s.mu.Unlock()
}
