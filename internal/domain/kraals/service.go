package kraals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"livestock-registry/internal/domain/assignments"
	"livestock-registry/internal/ports/notify"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	// ErrConflict: nombre duplicado, o corral ocupado al intentar borrar.
	ErrConflict = errors.New("conflict")
)

type Service struct {
	repo     Repository
	asg      *assignments.Service
	notifier notify.Notifier // puede ser nil (modo dev)
	now      func() time.Time
}

func NewService(repo Repository, asg *assignments.Service, notifier notify.Notifier) *Service {
	return &Service{
		repo:     repo,
		asg:      asg,
		notifier: notifier,
		now:      time.Now,
	}
}

type CreateInput struct {
	Name        string
	Description string
	Capacity    int
	LocationID  *string
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (Kraal, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return Kraal{}, ErrInvalidInput
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Kraal{}, fmt.Errorf("name: %w", ErrInvalidInput)
	}
	if in.Capacity < 0 {
		return Kraal{}, fmt.Errorf("capacity: %w", ErrInvalidInput)
	}

	now := s.now()
	k := Kraal{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Capacity:    in.Capacity,
		LocationID:  in.LocationID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, k); err != nil {
		if errors.Is(err, ErrConflict) {
			return Kraal{}, fmt.Errorf("kraal name=%s: %w", name, err)
		}
		return Kraal{}, err
	}

	s.notifyEvent(ctx, "kraal.created", k.ID, ownerUserID)
	return k, nil
}

type UpdateInput struct {
	// Punteros para PATCH real: nil = no tocar.
	Name        *string
	Description *string // "" limpia
	Capacity    *int
	LocationID  *string // "" limpia la referencia
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Kraal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Kraal{}, ErrInvalidInput
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Kraal{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Kraal{}, fmt.Errorf("name: %w", ErrInvalidInput)
		}
		current.Name = name
	}
	if in.Description != nil {
		current.Description = strings.TrimSpace(*in.Description)
	}
	if in.Capacity != nil {
		if *in.Capacity < 0 {
			return Kraal{}, fmt.Errorf("capacity: %w", ErrInvalidInput)
		}
		current.Capacity = *in.Capacity
	}
	if in.LocationID != nil {
		loc := strings.TrimSpace(*in.LocationID)
		if loc == "" {
			current.LocationID = nil
		} else {
			current.LocationID = &loc
		}
	}

	current.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, current); err != nil {
		if errors.Is(err, ErrConflict) {
			return Kraal{}, fmt.Errorf("kraal id=%s name=%s: %w", current.ID, current.Name, err)
		}
		return Kraal{}, err
	}

	s.notifyEvent(ctx, "kraal.updated", current.ID, current.OwnerUserID)
	return current, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Kraal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Kraal{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Kraal, error) {
	return s.repo.ListByOwner(ctx, ownerUserID)
}

// Delete borra el corral. Se rechaza con ErrConflict si algún animal lo
// ocupa actualmente (assignment abierta): primero hay que reasignar.
func (s *Service) Delete(ctx context.Context, id string) error {
	k, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	occupied, err := s.asg.KraalOccupied(ctx, id)
	if err != nil {
		return err
	}
	if occupied {
		return fmt.Errorf("kraal id=%s ocupado: %w", id, ErrConflict)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.notifyEvent(ctx, "kraal.deleted", id, k.OwnerUserID)
	return nil
}

// Exists implementa cattle.KraalDirectory.
// Método chico para evitar ciclos de imports entre módulos (cattle <-> kraals).
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) notifyEvent(ctx context.Context, eventType, entityID, userID string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notify.Event{
		Type:       eventType,
		EntityKind: "kraal",
		EntityID:   entityID,
		UserID:     userID,
		OccurredAt: s.now(),
	})
}
