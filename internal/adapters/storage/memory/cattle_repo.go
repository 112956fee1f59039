package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"livestock-registry/internal/domain/cattle"
)

type cattleRepo struct {
	mu   sync.RWMutex
	byID map[string]cattle.Cattle
}

func NewCattleRepo() cattle.Repository {
	return &cattleRepo{
		byID: make(map[string]cattle.Cattle),
	}
}

func (r *cattleRepo) Create(ctx context.Context, c cattle.Cattle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(c.ID) == "" {
		return errors.New("cattle id required")
	}
	if _, exists := r.byID[c.ID]; exists {
		return errors.New("cattle already exists")
	}
	if c.TagNumber != "" {
		for _, other := range r.byID {
			if other.TagNumber == c.TagNumber {
				return cattle.ErrConflict
			}
		}
	}
	r.byID[c.ID] = c
	return nil
}

func (r *cattleRepo) Update(ctx context.Context, c cattle.Cattle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[c.ID]; !exists {
		return cattle.ErrNotFound
	}
	if c.TagNumber != "" {
		for id, other := range r.byID {
			if id != c.ID && other.TagNumber == c.TagNumber {
				return cattle.ErrConflict
			}
		}
	}
	r.byID[c.ID] = c
	return nil
}

func (r *cattleRepo) GetByID(ctx context.Context, id string) (cattle.Cattle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return cattle.Cattle{}, cattle.ErrNotFound
	}
	return c, nil
}

func (r *cattleRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]cattle.Cattle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]cattle.Cattle, 0)
	for _, c := range r.byID {
		if c.OwnerUserID == ownerUserID {
			out = append(out, c)
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

func (r *cattleRepo) ListOffspring(ctx context.Context, parentID string, role cattle.ParentRole, f cattle.OffspringFilter) ([]cattle.Cattle, error) {
	r.mu.RLock()
	matched := r.matchOffspring(parentID, role, f.Query)
	r.mu.RUnlock()

	sortByCreatedAt(matched)

	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage < 1 {
		perPage = cattle.DefaultPerPage
	}

	skip := (page - 1) * perPage
	if skip >= len(matched) {
		return []cattle.Cattle{}, nil
	}
	end := skip + perPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], nil
}

func (r *cattleRepo) CountOffspring(ctx context.Context, parentID string, role cattle.ParentRole, query string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matchOffspring(parentID, role, query)), nil
}

// matchOffspring se llama con el lock tomado.
func (r *cattleRepo) matchOffspring(parentID string, role cattle.ParentRole, query string) []cattle.Cattle {
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]cattle.Cattle, 0)
	for _, c := range r.byID {
		var ref *string
		switch role {
		case cattle.RoleSire:
			ref = c.SireID
		case cattle.RoleDam:
			ref = c.DamID
		}
		if ref == nil || *ref != parentID {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(c.Name), query) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (r *cattleRepo) ClearParentRefs(ctx context.Context, parentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.byID {
		changed := false
		if c.SireID != nil && *c.SireID == parentID {
			c.SireID = nil
			changed = true
		}
		if c.DamID != nil && *c.DamID == parentID {
			c.DamID = nil
			changed = true
		}
		if changed {
			r.byID[id] = c
		}
	}
	return nil
}

func (r *cattleRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return cattle.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func sortByCreatedAt(items []cattle.Cattle) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
