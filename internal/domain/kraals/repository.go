package kraals

import "context"

type Repository interface {
	Create(ctx context.Context, k Kraal) error
	Update(ctx context.Context, k Kraal) error
	GetByID(ctx context.Context, id string) (Kraal, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Kraal, error)
	Delete(ctx context.Context, id string) error
}
