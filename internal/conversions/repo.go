package conversions

import "context"

// Repo defines persistence operations for conversion records.
type Repo interface {
	Create(ctx context.Context, conv Conversion) error
	GetByID(ctx context.Context, id string) (Conversion, error)
	List(ctx context.Context, limit, offset int) ([]Conversion, error)
}
