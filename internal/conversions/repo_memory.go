package conversions

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores conversion records in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Conversion
	all  []Conversion
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Conversion)}
}

// Create stores the record.
func (r *MemoryRepo) Create(ctx context.Context, conv Conversion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[conv.ID] = conv
	r.all = append(r.all, conv)
	return nil
}

// GetByID returns a record by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Conversion, error) {
	if err := ctx.Err(); err != nil {
		return Conversion{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.byID[id]
	if !ok {
		return Conversion{}, ErrNotFound
	}
	return conv, nil
}

// List returns records newest first with limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Conversion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	out := make([]Conversion, len(r.all))
	copy(out, r.all)
	r.mu.RUnlock()

	if offset >= len(out) {
		return []Conversion{}, nil
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
