package kraals

import "time"

// Kraal representa un corral/ubicación donde se alojan animales.
// Name es único a nivel store (conflicto distinguible, no error genérico).
type Kraal struct {
	ID          string
	OwnerUserID string

	Name        string
	Description string
	Capacity    int // no-negativo, default 0

	// LocationID referencia opcional a la tabla de ubicaciones de la
	// plataforma; el registro solo guarda el id.
	LocationID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
