package assignments

import "time"

// Assignment es un intervalo de ocupación de un corral (kraal) por un animal.
// EndDate == nil => el animal está actualmente en ese corral.
// Invariante central: a lo sumo UNA assignment abierta por animal.
type Assignment struct {
	ID       string
	CattleID string
	KraalID  string

	StartDate time.Time
	EndDate   *time.Time
}

// Open indica si el intervalo sigue vigente.
func (a Assignment) Open() bool {
	return a.EndDate == nil
}
