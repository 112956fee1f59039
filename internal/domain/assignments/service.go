package assignments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Reconcile deja al animal ocupando `kraalID`:
//   - sin assignment abierta => abre una nueva
//   - abierta en el mismo corral => no-op (evita churn en el historial)
//   - abierta en otro corral => cierra y abre, atómico vía repo
//
// Después de la llamada hay exactamente una assignment abierta para el animal.
func (s *Service) Reconcile(ctx context.Context, cattleID, kraalID string) error {
	cattleID = strings.TrimSpace(cattleID)
	kraalID = strings.TrimSpace(kraalID)
	if cattleID == "" || kraalID == "" {
		return ErrInvalidInput
	}

	current, err := s.repo.GetOpenByCattle(ctx, cattleID)
	switch {
	case errors.Is(err, ErrNoOpen):
		return s.repo.Open(ctx, Assignment{
			ID:        uuid.NewString(),
			CattleID:  cattleID,
			KraalID:   kraalID,
			StartDate: s.now(),
		})
	case err != nil:
		return err
	}

	if current.KraalID == kraalID {
		return nil
	}

	now := s.now()
	return s.repo.CloseAndOpen(ctx, current.ID, now, Assignment{
		ID:        uuid.NewString(),
		CattleID:  cattleID,
		KraalID:   kraalID,
		StartDate: now,
	})
}

// CurrentKraal devuelve el corral actual del animal, o "" si no ocupa ninguno.
func (s *Service) CurrentKraal(ctx context.Context, cattleID string) (string, error) {
	a, err := s.repo.GetOpenByCattle(ctx, cattleID)
	if errors.Is(err, ErrNoOpen) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return a.KraalID, nil
}

// History devuelve el historial de ocupación (append-only, sin solapamientos).
func (s *Service) History(ctx context.Context, cattleID string) ([]Assignment, error) {
	cattleID = strings.TrimSpace(cattleID)
	if cattleID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByCattle(ctx, cattleID)
}

// KraalOccupied indica si el corral tiene algún ocupante actual.
// Lo usa kraals.Service para impedir borrar un corral ocupado.
func (s *Service) KraalOccupied(ctx context.Context, kraalID string) (bool, error) {
	return s.repo.HasOpenByKraal(ctx, kraalID)
}

// DropHistory elimina el historial del animal. Se invoca al borrar el animal.
func (s *Service) DropHistory(ctx context.Context, cattleID string) error {
	return s.repo.DeleteByCattle(ctx, cattleID)
}
