package cattle

import "time"

// Cattle representa un animal del registro, con pedigrí (sire/dam como
// self-references opcionales) y datos sanitarios.
type Cattle struct {
	ID          string
	OwnerUserID string

	Name      string
	TagNumber string // "" = sin caravana; único cuando está presente
	Breed     Breed
	Gender    Gender
	IsOx      bool

	DateOfBirth  *time.Time
	HealthStatus HealthStatus

	VaccinationRecords string
	MainImageURL       string

	// Pedigrí: referencias opcionales a otros Cattle. Grafo dirigido
	// acíclico: un animal nunca puede ser su propio ancestro.
	SireID *string
	DamID  *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// View es el modelo enriquecido que consume la capa de rutas/UI:
// el animal + padres + crías paginadas + derivados.
type View struct {
	Cattle Cattle

	Sire *Cattle
	Dam  *Cattle

	// Página actual de crías, filtrada por búsqueda si aplica.
	OffspringAsSire []Cattle
	OffspringAsDam  []Cattle

	// TotalChildren es el conteo GLOBAL de crías (no solo la página).
	TotalChildren int

	// Age en años calendario (año actual - año de nacimiento), nil sin fecha.
	Age *int

	// KraalID es el corral actual (assignment abierta), nil si no ocupa ninguno.
	KraalID *string
}
