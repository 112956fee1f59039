package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"livestock-registry/internal/domain/kraals"
)

type kraalsRepo struct {
	mu   sync.RWMutex
	byID map[string]kraals.Kraal
}

func NewKraalsRepo() kraals.Repository {
	return &kraalsRepo{
		byID: make(map[string]kraals.Kraal),
	}
}

func (r *kraalsRepo) Create(ctx context.Context, k kraals.Kraal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(k.ID) == "" {
		return errors.New("kraal id required")
	}
	if _, exists := r.byID[k.ID]; exists {
		return errors.New("kraal already exists")
	}
	// Unicidad de nombre, como el UNIQUE del store real.
	for _, other := range r.byID {
		if other.Name == k.Name {
			return kraals.ErrConflict
		}
	}
	r.byID[k.ID] = k
	return nil
}

func (r *kraalsRepo) Update(ctx context.Context, k kraals.Kraal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[k.ID]; !exists {
		return kraals.ErrNotFound
	}
	for id, other := range r.byID {
		if id != k.ID && other.Name == k.Name {
			return kraals.ErrConflict
		}
	}
	r.byID[k.ID] = k
	return nil
}

func (r *kraalsRepo) GetByID(ctx context.Context, id string) (kraals.Kraal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.byID[id]
	if !ok {
		return kraals.Kraal{}, kraals.ErrNotFound
	}
	return k, nil
}

func (r *kraalsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]kraals.Kraal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]kraals.Kraal, 0)
	for _, k := range r.byID {
		if k.OwnerUserID == ownerUserID {
			out = append(out, k)
		}
	}

	// Orden estable por created_at asc (consistencia con postgres)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *kraalsRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return kraals.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
