package cattle

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
	// ErrConflict: violación de unicidad (tag_number).
	ErrConflict = errors.New("conflict")
)

const (
	DefaultPerPage = 8

	// maxPedigreeDepth acota el walk de ancestros al validar sire/dam.
	maxPedigreeDepth = 64
)

// KraalDirectory expone lo mínimo que cattle necesita saber de kraals.
// Interface propia para evitar ciclos de imports entre módulos.
type KraalDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo     Repository
	asg      *assignments.Service
	kraals   KraalDirectory
	notifier notify.Notifier // puede ser nil (modo dev)
	now      func() time.Time
}

func NewService(repo Repository, asg *assignments.Service, kraals KraalDirectory, notifier notify.Notifier) *Service {
	return &Service{
		repo:     repo,
		asg:      asg,
		kraals:   kraals,
		notifier: notifier,
		now:      time.Now,
	}
}

// OptionalRef distingue "campo no enviado" (Set=false) de "enviado null"
// (Set=true, Value=nil). Generalización del wrapper de birth_date del PATCH.
type OptionalRef struct {
	Set   bool
	Value *string
}

type OptionalDate struct {
	Set   bool
	Value *time.Time
}

type CreateInput struct {
	Name               string
	TagNumber          string
	Breed              string
	Gender             string
	IsOx               bool
	DateOfBirth        *time.Time
	HealthStatus       string
	VaccinationRecords string
	SireID             *string
	DamID              *string
	KraalID            *string
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (Cattle, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return Cattle{}, ErrInvalidInput
	}

	name := strings.TrimSpace(in.Name)
	if len(name) < 2 {
		return Cattle{}, fmt.Errorf("name: mínimo 2 caracteres: %w", ErrInvalidInput)
	}
	breed := Breed(strings.TrimSpace(in.Breed))
	if !ValidBreed(breed) {
		return Cattle{}, fmt.Errorf("breed: %w", ErrInvalidInput)
	}
	gender := Gender(strings.TrimSpace(in.Gender))
	if !ValidGender(gender) {
		return Cattle{}, fmt.Errorf("gender: %w", ErrInvalidInput)
	}
	health := HealthStatus(strings.TrimSpace(in.HealthStatus))
	if health == "" {
		return Cattle{}, fmt.Errorf("health_status: %w", ErrInvalidInput)
	}

	// Padres: deben existir. En create no puede haber ciclo (el animal
	// todavía no está referenciado por nadie), alcanza con existencia.
	if in.SireID != nil {
		if _, err := s.repo.GetByID(ctx, *in.SireID); err != nil {
			return Cattle{}, fmt.Errorf("sire_id=%s: %w", *in.SireID, err)
		}
	}
	if in.DamID != nil {
		if _, err := s.repo.GetByID(ctx, *in.DamID); err != nil {
			return Cattle{}, fmt.Errorf("dam_id=%s: %w", *in.DamID, err)
		}
	}
	if in.KraalID != nil {
		if err := s.checkKraal(ctx, *in.KraalID); err != nil {
			return Cattle{}, err
		}
	}

	now := s.now()
	c := Cattle{
		ID:                 uuid.NewString(),
		OwnerUserID:        ownerUserID,
		Name:               name,
		TagNumber:          strings.TrimSpace(in.TagNumber),
		Breed:              breed,
		Gender:             gender,
		IsOx:               in.IsOx,
		DateOfBirth:        in.DateOfBirth,
		HealthStatus:       health,
		VaccinationRecords: strings.TrimSpace(in.VaccinationRecords),
		SireID:             in.SireID,
		DamID:              in.DamID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrConflict) {
			return Cattle{}, fmt.Errorf("cattle tag_number=%s: %w", c.TagNumber, err)
		}
		return Cattle{}, err
	}

	// Primera assignment si se indicó corral.
	if in.KraalID != nil {
		if err := s.asg.Reconcile(ctx, c.ID, *in.KraalID); err != nil {
			return Cattle{}, err
		}
	}

	s.notifyEvent(ctx, "cattle.created", c.ID, ownerUserID)
	return c, nil
}

type UpdateInput struct {
	// Punteros para PATCH real: nil = no tocar.
	Name               *string
	TagNumber          *string // "" limpia la caravana
	Breed              *string
	Gender             *string
	IsOx               *bool
	DateOfBirth        OptionalDate
	HealthStatus       *string
	VaccinationRecords *string // "" limpia
	SireID             OptionalRef
	DamID              OptionalRef
	KraalID            *string // presente => reconcilia el corral
}

// Update aplica solo los campos presentes; los ausentes quedan intactos.
// Si KraalID viene en el payload, reconcilia la assignment al final.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Cattle, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Cattle{}, ErrInvalidInput
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Cattle{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if len(name) < 2 {
			return Cattle{}, fmt.Errorf("name: mínimo 2 caracteres: %w", ErrInvalidInput)
		}
		current.Name = name
	}
	if in.TagNumber != nil {
		current.TagNumber = strings.TrimSpace(*in.TagNumber)
	}
	if in.Breed != nil {
		breed := Breed(strings.TrimSpace(*in.Breed))
		if !ValidBreed(breed) {
			return Cattle{}, fmt.Errorf("breed: %w", ErrInvalidInput)
		}
		current.Breed = breed
	}
	if in.Gender != nil {
		gender := Gender(strings.TrimSpace(*in.Gender))
		if !ValidGender(gender) {
			return Cattle{}, fmt.Errorf("gender: %w", ErrInvalidInput)
		}
		current.Gender = gender
	}
	if in.IsOx != nil {
		current.IsOx = *in.IsOx
	}
	if in.DateOfBirth.Set {
		current.DateOfBirth = in.DateOfBirth.Value
	}
	if in.HealthStatus != nil {
		health := HealthStatus(strings.TrimSpace(*in.HealthStatus))
		if health == "" {
			return Cattle{}, fmt.Errorf("health_status: %w", ErrInvalidInput)
		}
		current.HealthStatus = health
	}
	if in.VaccinationRecords != nil {
		current.VaccinationRecords = strings.TrimSpace(*in.VaccinationRecords)
	}

	if in.SireID.Set {
		ref, err := s.checkParent(ctx, id, in.SireID.Value)
		if err != nil {
			return Cattle{}, err
		}
		current.SireID = ref
	}
	if in.DamID.Set {
		ref, err := s.checkParent(ctx, id, in.DamID.Value)
		if err != nil {
			return Cattle{}, err
		}
		current.DamID = ref
	}

	// El corral se valida antes de escribir, igual que en Create: un
	// payload rechazado no debe persistir ninguno de sus campos.
	if in.KraalID != nil {
		if err := s.checkKraal(ctx, *in.KraalID); err != nil {
			return Cattle{}, err
		}
	}

	current.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, current); err != nil {
		if errors.Is(err, ErrConflict) {
			// Contexto de entidad para diagnóstico del caller.
			return Cattle{}, fmt.Errorf("cattle id=%s owner=%s tag_number=%s: %w",
				current.ID, current.OwnerUserID, current.TagNumber, err)
		}
		return Cattle{}, err
	}

	if in.KraalID != nil {
		if err := s.asg.Reconcile(ctx, id, *in.KraalID); err != nil {
			return Cattle{}, err
		}
	}

	s.notifyEvent(ctx, "cattle.updated", current.ID, current.OwnerUserID)
	return current, nil
}

// SetMainImage persiste la URL devuelta por el storage de imágenes.
func (s *Service) SetMainImage(ctx context.Context, id, url string) (Cattle, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Cattle{}, err
	}
	current.MainImageURL = strings.TrimSpace(url)
	current.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, current); err != nil {
		return Cattle{}, err
	}
	return current, nil
}

// ViewQuery pagina/filtra las crías del View.
type ViewQuery struct {
	Page    int
	PerPage int
	Query   string
}

// ResolveView carga el animal + sire + dam + crías paginadas, y deriva
// edad, conteo global de crías y corral actual.
func (s *Service) ResolveView(ctx context.Context, id string, q ViewQuery) (View, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return View{}, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	query := strings.TrimSpace(q.Query)

	v := View{Cattle: c}

	if c.SireID != nil {
		if sire, err := s.repo.GetByID(ctx, *c.SireID); err == nil {
			v.Sire = &sire
		} else if !errors.Is(err, ErrNotFound) {
			return View{}, err
		}
	}
	if c.DamID != nil {
		if dam, err := s.repo.GetByID(ctx, *c.DamID); err == nil {
			v.Dam = &dam
		} else if !errors.Is(err, ErrNotFound) {
			return View{}, err
		}
	}

	filter := OffspringFilter{Query: query, Page: page, PerPage: perPage}
	if v.OffspringAsSire, err = s.repo.ListOffspring(ctx, id, RoleSire, filter); err != nil {
		return View{}, err
	}
	if v.OffspringAsDam, err = s.repo.ListOffspring(ctx, id, RoleDam, filter); err != nil {
		return View{}, err
	}

	// Conteo global, no el de la página.
	asSire, err := s.repo.CountOffspring(ctx, id, RoleSire, query)
	if err != nil {
		return View{}, err
	}
	asDam, err := s.repo.CountOffspring(ctx, id, RoleDam, query)
	if err != nil {
		return View{}, err
	}
	v.TotalChildren = asSire + asDam

	if c.DateOfBirth != nil {
		// Resta de años calendario, sin ajustar por mes/día.
		age := s.now().Year() - c.DateOfBirth.Year()
		v.Age = &age
	}

	kraalID, err := s.asg.CurrentKraal(ctx, id)
	if err != nil {
		return View{}, err
	}
	if kraalID != "" {
		v.KraalID = &kraalID
	}

	return v, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Cattle, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Cattle{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Cattle, error) {
	return s.repo.ListByOwner(ctx, ownerUserID)
}

// Delete borra el animal, limpia las referencias sire/dam de sus crías
// y elimina su historial de assignments.
func (s *Service) Delete(ctx context.Context, id string) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.ClearParentRefs(ctx, id); err != nil {
		return err
	}
	if err := s.asg.DropHistory(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.notifyEvent(ctx, "cattle.deleted", id, c.OwnerUserID)
	return nil
}

// checkParent valida una referencia de pedigrí nueva para `childID`:
// el padre debe existir, no ser el propio animal, y el animal no puede
// aparecer en la cadena de ancestros del candidato (aciclicidad).
func (s *Service) checkParent(ctx context.Context, childID string, parentID *string) (*string, error) {
	if parentID == nil {
		return nil, nil // limpiar la referencia
	}
	pid := strings.TrimSpace(*parentID)
	if pid == "" || pid == childID {
		return nil, fmt.Errorf("parent ref: %w", ErrInvalidInput)
	}

	parent, err := s.repo.GetByID(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("parent id=%s: %w", pid, err)
	}

	if err := s.walkAncestors(ctx, parent, childID, 0); err != nil {
		return nil, err
	}
	return &pid, nil
}

func (s *Service) walkAncestors(ctx context.Context, from Cattle, forbidden string, depth int) error {
	if depth >= maxPedigreeDepth {
		return nil
	}
	for _, ref := range []*string{from.SireID, from.DamID} {
		if ref == nil {
			continue
		}
		if *ref == forbidden {
			return fmt.Errorf("pedigree cycle: %w", ErrInvalidInput)
		}
		ancestor, err := s.repo.GetByID(ctx, *ref)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // referencia huérfana, no corta el walk
			}
			return err
		}
		if err := s.walkAncestors(ctx, ancestor, forbidden, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) checkKraal(ctx context.Context, kraalID string) error {
	kraalID = strings.TrimSpace(kraalID)
	if kraalID == "" {
		return fmt.Errorf("kraal_id: %w", ErrInvalidInput)
	}
	ok, err := s.kraals.Exists(ctx, kraalID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("kraal id=%s: %w", kraalID, ErrNotFound)
	}
	return nil
}

// notifyEvent es fire-and-forget: un fallo del notifier nunca falla la mutación.
func (s *Service) notifyEvent(ctx context.Context, eventType, entityID, userID string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notify.Event{
		Type:       eventType,
		EntityKind: "cattle",
		EntityID:   entityID,
		UserID:     userID,
		OccurredAt: s.now(),
	})
}
