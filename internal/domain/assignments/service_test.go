package assignments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

// testRepo replica la semántica del adapter real: Open falla con ErrConflict
// si el animal ya tiene una assignment abierta, y CloseAndOpen es atómico
// bajo el lock.
type testRepo struct {
	mu   sync.Mutex
	byID map[string]Assignment
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Assignment{}}
}

func (r *testRepo) Open(ctx context.Context, a Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == "" {
		return errors.New("repo: id required")
	}
	for _, other := range r.byID {
		if other.CattleID == a.CattleID && other.Open() {
			return ErrConflict
		}
	}
	r.byID[a.ID] = a
	return nil
}

func (r *testRepo) CloseAndOpen(ctx context.Context, closeID string, closedAt time.Time, next Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[closeID]
	if !ok || !current.Open() {
		return ErrConflict
	}
	t := closedAt
	current.EndDate = &t
	r.byID[closeID] = current
	r.byID[next.ID] = next
	return nil
}

func (r *testRepo) GetOpenByCattle(ctx context.Context, cattleID string) (Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.byID {
		if a.CattleID == cattleID && a.Open() {
			return a, nil
		}
	}
	return Assignment{}, ErrNoOpen
}

func (r *testRepo) ListByCattle(ctx context.Context, cattleID string) ([]Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Assignment, 0)
	for _, a := range r.byID {
		if a.CattleID == cattleID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *testRepo) HasOpenByKraal(ctx context.Context, kraalID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.byID {
		if a.KraalID == kraalID && a.Open() {
			return true, nil
		}
	}
	return false, nil
}

func (r *testRepo) DeleteByCattle(ctx context.Context, cattleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, a := range r.byID {
		if a.CattleID == cattleID {
			delete(r.byID, id)
		}
	}
	return nil
}

func (r *testRepo) openCount(cattleID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, a := range r.byID {
		if a.CattleID == cattleID && a.Open() {
			n++
		}
	}
	return n
}

// -------------------------
// Tests
// -------------------------

func TestReconcile_OpensFirstAssignment(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()
	svc := NewService(repo)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	require.NoError(t, svc.Reconcile(ctx, "cow-1", "kraal-a"))

	current, err := svc.CurrentKraal(ctx, "cow-1")
	require.NoError(t, err)
	require.Equal(t, "kraal-a", current)

	history, err := svc.History(ctx, "cow-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.True(t, history[0].Open())
	require.Equal(t, fixed, history[0].StartDate)
}

func TestReconcile_SameKraalIsNoOp(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()
	svc := NewService(repo)

	require.NoError(t, svc.Reconcile(ctx, "cow-1", "kraal-a"))
	require.NoError(t, svc.Reconcile(ctx, "cow-1", "kraal-a"))
	require.NoError(t, svc.Reconcile(ctx, "cow-1", "kraal-a"))

	history, err := svc.History(ctx, "cow-1")
	require.NoError(t, err)
	require.Len(t, history, 1, "reasignar al mismo corral no debe generar historial")
}

func TestReconcile_MoveClosesThenOpens(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()
	svc := NewService(repo)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := t0
	svc.now = func() time.Time { return current }

	require.NoError(t, svc.Reconcile(ctx, "cow-1", "kraal-a"))

	current = t0.Add(48 * time.Hour)
	require.NoError(t, svc.Reconcile(ctx, "cow-1", "kraal-b"))

	history, err := svc.History(ctx, "cow-1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	var closed, open Assignment
	for _, a := range history {
		if a.Open() {
			open = a
		} else {
			closed = a
		}
	}

	require.Equal(t, "kraal-a", closed.KraalID)
	require.Equal(t, "kraal-b", open.KraalID)

	// Cierre y apertura comparten el mismo instante: sin huecos ni solapes.
	require.NotNil(t, closed.EndDate)
	require.Equal(t, *closed.EndDate, open.StartDate)
	require.Equal(t, 1, repo.openCount("cow-1"))
}

func TestReconcile_ValidatesInput(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestRepo())

	require.ErrorIs(t, svc.Reconcile(ctx, "", "kraal-a"), ErrInvalidInput)
	require.ErrorIs(t, svc.Reconcile(ctx, "cow-1", ""), ErrInvalidInput)
	require.ErrorIs(t, svc.Reconcile(ctx, "  ", "  "), ErrInvalidInput)
}

func TestReconcile_ConcurrentStormKeepsSingleOpen(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()
	svc := NewService(repo)

	kraals := []string{"kraal-a", "kraal-b", "kraal-c"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// El perdedor de la carrera get-then-open puede ver ErrConflict;
			// lo importante es que nunca queden dos abiertas.
			err := svc.Reconcile(ctx, "cow-1", kraals[i%len(kraals)])
			if err != nil && !errors.Is(err, ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, repo.openCount("cow-1"), "debe quedar exactamente una assignment abierta")

	current, err := svc.CurrentKraal(ctx, "cow-1")
	require.NoError(t, err)
	require.Contains(t, kraals, current)
}

func TestCurrentKraal_EmptyWhenUnassigned(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestRepo())

	current, err := svc.CurrentKraal(ctx, "cow-ghost")
	require.NoError(t, err)
	require.Empty(t, current)
}

func TestKraalOccupied(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestRepo())

	require.NoError(t, svc.Reconcile(ctx, "cow-1", "kraal-a"))

	occupied, err := svc.KraalOccupied(ctx, "kraal-a")
	require.NoError(t, err)
	require.True(t, occupied)

	// Mover el animal libera el corral original.
	require.NoError(t, svc.Reconcile(ctx, "cow-1", "kraal-b"))

	occupied, err = svc.KraalOccupied(ctx, "kraal-a")
	require.NoError(t, err)
	require.False(t, occupied)
}

func TestDropHistory(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestRepo())

	require.NoError(t, svc.Reconcile(ctx, "cow-1", "kraal-a"))
	require.NoError(t, svc.Reconcile(ctx, "cow-1", "kraal-b"))

	require.NoError(t, svc.DropHistory(ctx, "cow-1"))

	history, err := svc.History(ctx, "cow-1")
	require.NoError(t, err)
	require.Empty(t, history)
}
