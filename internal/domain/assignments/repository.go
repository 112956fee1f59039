package assignments

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoOpen: el animal no tiene assignment abierta.
	ErrNoOpen = errors.New("no open assignment")
	// ErrConflict: el store detectó una segunda assignment abierta
	// (carrera perdida o intervalo cerrado por otro request).
	ErrConflict = errors.New("assignment conflict")
)

type Repository interface {
	// Open inserta una assignment abierta. Debe fallar con ErrConflict
	// si el animal ya tiene una abierta (índice parcial en postgres,
	// chequeo bajo lock en memoria).
	Open(ctx context.Context, a Assignment) error

	// CloseAndOpen cierra la assignment `closeID` (solo si sigue abierta)
	// y abre `next`, de forma atómica. Si `closeID` ya no está abierta,
	// falla con ErrConflict sin aplicar nada.
	CloseAndOpen(ctx context.Context, closeID string, closedAt time.Time, next Assignment) error

	// GetOpenByCattle devuelve la assignment abierta del animal o ErrNoOpen.
	GetOpenByCattle(ctx context.Context, cattleID string) (Assignment, error)

	// ListByCattle devuelve el historial completo, start_date ascendente.
	ListByCattle(ctx context.Context, cattleID string) ([]Assignment, error)

	// HasOpenByKraal indica si algún animal ocupa actualmente el corral.
	HasOpenByKraal(ctx context.Context, kraalID string) (bool, error)

	// DeleteByCattle borra el historial del animal (al eliminar el animal).
	DeleteByCattle(ctx context.Context, cattleID string) error
}
