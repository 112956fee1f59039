package permissions

import "context"

// Action sobre una entidad del registro.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Check describe el acceso que se quiere autorizar.
// OwnerUserID viaja para que el servicio externo pueda aplicar reglas
// de delegación (el owner nunca pasa por aquí: bypass en el handler).
type Check struct {
	UserID      string
	TenantID    string
	Action      Action
	Resource    string // "kraal" | "cattle"
	ResourceID  string
	OwnerUserID string
}

// Authorizer es el colaborador externo de permisos.
// El core confía en su respuesta; no re-valida.
type Authorizer interface {
	Can(ctx context.Context, in Check) (bool, error)
}
