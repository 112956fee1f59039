package cattle

// Breed define las razas soportadas.
// @Enum angus, hereford, brahman, charolais, simmental, limousin, bonsmara,
// nguni, afrikaner, brangus, santa_gertrudis, drakensberger, tuli, boran, mixed
type Breed string

const (
	BreedAngus          Breed = "angus"
	BreedHereford       Breed = "hereford"
	BreedBrahman        Breed = "brahman"
	BreedCharolais      Breed = "charolais"
	BreedSimmental      Breed = "simmental"
	BreedLimousin       Breed = "limousin"
	BreedBonsmara       Breed = "bonsmara"
	BreedNguni          Breed = "nguni"
	BreedAfrikaner      Breed = "afrikaner"
	BreedBrangus        Breed = "brangus"
	BreedSantaGertrudis Breed = "santa_gertrudis"
	BreedDrakensberger  Breed = "drakensberger"
	BreedTuli           Breed = "tuli"
	BreedBoran          Breed = "boran"
	BreedMixed          Breed = "mixed"
)

var allBreeds = map[Breed]struct{}{
	BreedAngus: {}, BreedHereford: {}, BreedBrahman: {}, BreedCharolais: {},
	BreedSimmental: {}, BreedLimousin: {}, BreedBonsmara: {}, BreedNguni: {},
	BreedAfrikaner: {}, BreedBrangus: {}, BreedSantaGertrudis: {},
	BreedDrakensberger: {}, BreedTuli: {}, BreedBoran: {}, BreedMixed: {},
}

func ValidBreed(b Breed) bool {
	_, ok := allBreeds[b]
	return ok
}

// Gender define el sexo del animal.
// @Enum male, female
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func ValidGender(g Gender) bool {
	return g == GenderMale || g == GenderFemale
}

// HealthStatus es texto libre en el modelo; la UI lo acota a estos valores.
type HealthStatus string

const (
	HealthHealthy HealthStatus = "healthy"
	HealthSick    HealthStatus = "sick"
	HealthInjured HealthStatus = "injured"
	HealthDead    HealthStatus = "dead"
)
