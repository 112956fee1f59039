package cattle

import "context"

// ParentRole indica por cuál referencia se buscan crías.
type ParentRole string

const (
	RoleSire ParentRole = "sire"
	RoleDam  ParentRole = "dam"
)

// OffspringFilter pagina y filtra crías por nombre (substring, case-insensitive).
type OffspringFilter struct {
	Query   string
	Page    int // 1-based
	PerPage int
}

type Repository interface {
	Create(ctx context.Context, c Cattle) error
	Update(ctx context.Context, c Cattle) error
	GetByID(ctx context.Context, id string) (Cattle, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Cattle, error)

	// ListOffspring devuelve la página de crías donde `parentID` aparece
	// como sire o dam. Orden: created_at ascendente (paginación estable).
	ListOffspring(ctx context.Context, parentID string, role ParentRole, f OffspringFilter) ([]Cattle, error)

	// CountOffspring cuenta TODAS las crías que matchean (sin paginar).
	CountOffspring(ctx context.Context, parentID string, role ParentRole, query string) (int, error)

	// ClearParentRefs pone en NULL sire_id/dam_id de las crías de `parentID`.
	// Evita punteros colgantes al borrar un animal.
	ClearParentRefs(ctx context.Context, parentID string) error

	Delete(ctx context.Context, id string) error
}
