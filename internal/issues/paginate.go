package issues

import (
	"context"

	"github.com/roeyazroel/linear-ide/internal/linearapi"
)

// drain loads every remaining page of conn. Connections are cumulative, so
// only the nodes past what has already been collected are appended.
func drain[T any](ctx context.Context, conn *linearapi.Connection[T]) ([]T, error) {
	all := append([]T(nil), conn.Nodes...)
	for conn.HasNextPage() {
		next, err := conn.FetchNext(ctx)
		if err != nil {
			return nil, err
		}
		if next == conn {
			break
		}
		if len(next.Nodes) > len(all) {
			all = append(all, next.Nodes[len(all):]...)
		}
		conn = next
	}
	return all, nil
}
