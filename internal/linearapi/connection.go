package linearapi

import (
	"context"

	"github.com/shurcooL/graphql"
)

// PageInfo is the cursor state of a connection page.
type PageInfo struct {
	HasNextPage bool
	EndCursor   string
}

type pageInfoFragment struct {
	HasNextPage graphql.Boolean
	EndCursor   graphql.String
}

func (p pageInfoFragment) toPageInfo() PageInfo {
	return PageInfo{HasNextPage: bool(p.HasNextPage), EndCursor: string(p.EndCursor)}
}

// PageFetcher loads the page that follows the cursor after.
type PageFetcher[T any] func(ctx context.Context, after string) ([]T, PageInfo, error)

// Connection is a cursor-paginated result. Nodes is cumulative: a connection
// returned by FetchNext holds every node of the previous pages followed by
// the new page, so callers draining it must slice off what they already have.
type Connection[T any] struct {
	Nodes    []T
	PageInfo PageInfo
	fetch    PageFetcher[T]
}

// NewConnection builds a connection from its first page. fetch may be nil
// when the connection cannot be continued.
func NewConnection[T any](nodes []T, info PageInfo, fetch PageFetcher[T]) *Connection[T] {
	return &Connection[T]{Nodes: nodes, PageInfo: info, fetch: fetch}
}

// HasNextPage reports whether FetchNext would load more nodes.
func (c *Connection[T]) HasNextPage() bool {
	return c.PageInfo.HasNextPage && c.fetch != nil
}

// FetchNext loads the next page and returns a new connection whose nodes
// include every previously loaded node. On the last page it returns c.
func (c *Connection[T]) FetchNext(ctx context.Context) (*Connection[T], error) {
	if !c.HasNextPage() {
		return c, nil
	}

	nodes, info, err := c.fetch(ctx, c.PageInfo.EndCursor)
	if err != nil {
		return nil, err
	}

	all := make([]T, 0, len(c.Nodes)+len(nodes))
	all = append(all, c.Nodes...)
	all = append(all, nodes...)
	return &Connection[T]{Nodes: all, PageInfo: info, fetch: c.fetch}, nil
}

// afterVar converts a cursor to the nullable GraphQL variable.
func afterVar(after string) *graphql.String {
	if after == "" {
		return nil
	}
	cursor := graphql.String(after)
	return &cursor
}
