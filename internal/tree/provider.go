package tree

import (
	"context"

	"github.com/roeyazroel/linear-ide/internal/events"
	"github.com/roeyazroel/linear-ide/internal/issues"
	"github.com/roeyazroel/linear-ide/internal/logger"
)

// Source lists assigned issues. *issues.Service implements it.
type Source interface {
	ListAssigned(ctx context.Context, filter issues.Filter) ([]issues.IssueRecord, error)
}

// Provider answers tree queries for the host. Listing failures are reported
// and produce an empty tree.
type Provider struct {
	source  Source
	filter  func() issues.Filter
	report  func(error)
	changed events.Emitter[struct{}]
}

// NewProvider creates a Provider. filter returns the active filter at query
// time; report receives listing errors and may be nil.
func NewProvider(source Source, filter func() issues.Filter, report func(error)) *Provider {
	if report == nil {
		report = func(error) {}
	}
	if filter == nil {
		filter = func() issues.Filter { return issues.Filter{} }
	}
	return &Provider{source: source, filter: filter, report: report}
}

// Roots lists and groups the assigned issues for the active filter.
func (p *Provider) Roots(ctx context.Context) []Group {
	list, err := p.source.ListAssigned(ctx, p.filter())
	if err != nil {
		logger.ErrorWithErr(err, "tree.provider: listing assigned issues failed")
		p.report(err)
		return []Group{}
	}
	return Build(list)
}

// ChildrenOf returns the issues of an already built group.
func (p *Provider) ChildrenOf(g Group) []issues.IssueRecord {
	return g.Issues
}

// Refresh notifies subscribers that the tree should be queried again.
func (p *Provider) Refresh() {
	p.changed.Fire(struct{}{})
}

// OnDidChange subscribes fn to refresh notifications.
func (p *Provider) OnDidChange(fn func()) (unsubscribe func()) {
	return p.changed.Subscribe(func(struct{}) { fn() })
}
