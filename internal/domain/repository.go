package domain

import "context"

// CreationRepository defines persistence for creation records. The table is
// append-only; there are no update or delete methods on purpose.
type CreationRepository interface {
	Insert(ctx context.Context, creation *Creation) error
	ListByUser(ctx context.Context, userID string) ([]Creation, error)
	ListPublished(ctx context.Context) ([]Creation, error)
}
