package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"livestock-registry/internal/domain/assignments"
)

type assignmentsRepo struct {
	mu   sync.Mutex
	byID map[string]assignments.Assignment
}

func NewAssignmentsRepo() assignments.Repository {
	return &assignmentsRepo{
		byID: make(map[string]assignments.Assignment),
	}
}

// Open replica el índice parcial de postgres: falla con ErrConflict si el
// animal ya tiene una assignment abierta. Todo bajo el mismo lock, así la
// carrera get-then-open de dos requests concurrentes no duplica abiertas.
func (r *assignmentsRepo) Open(ctx context.Context, a assignments.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(a.ID) == "" {
		return errors.New("assignment id required")
	}
	if _, exists := r.byID[a.ID]; exists {
		return errors.New("assignment already exists")
	}
	for _, other := range r.byID {
		if other.CattleID == a.CattleID && other.Open() {
			return assignments.ErrConflict
		}
	}
	r.byID[a.ID] = a
	return nil
}

// CloseAndOpen es atómico bajo el lock: cierra `closeID` solo si sigue
// abierta y abre `next`; si no, no toca nada.
func (r *assignmentsRepo) CloseAndOpen(ctx context.Context, closeID string, closedAt time.Time, next assignments.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[closeID]
	if !ok || !current.Open() {
		return assignments.ErrConflict
	}

	t := closedAt
	current.EndDate = &t
	r.byID[closeID] = current
	r.byID[next.ID] = next
	return nil
}

func (r *assignmentsRepo) GetOpenByCattle(ctx context.Context, cattleID string) (assignments.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.byID {
		if a.CattleID == cattleID && a.Open() {
			return a, nil
		}
	}
	return assignments.Assignment{}, assignments.ErrNoOpen
}

func (r *assignmentsRepo) ListByCattle(ctx context.Context, cattleID string) ([]assignments.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]assignments.Assignment, 0)
	for _, a := range r.byID {
		if a.CattleID == cattleID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

func (r *assignmentsRepo) HasOpenByKraal(ctx context.Context, kraalID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.byID {
		if a.KraalID == kraalID && a.Open() {
			return true, nil
		}
	}
	return false, nil
}

func (r *assignmentsRepo) DeleteByCattle(ctx context.Context, cattleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, a := range r.byID {
		if a.CattleID == cattleID {
			delete(r.byID, id)
		}
	}
	return nil
}
