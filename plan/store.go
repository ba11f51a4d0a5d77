package plan

import (
	"context"
)

// Store is the narrow persistence interface for plans. List returns
// plans in registration order; Delete preserves the relative order of
// the remaining plans (order is part of the published contract).
type Store interface {
	Create(ctx context.Context, p *Plan) error
	Get(ctx context.Context, planID uint64) (*Plan, error)
	List(ctx context.Context) ([]*Plan, error)
	Update(ctx context.Context, p *Plan) error
	Delete(ctx context.Context, planID uint64) error
}
