package combat

// DefaultIntelligence is assumed when a character sheet carries no INT.
const DefaultIntelligence = 10

// Source is the subset of dice.Source used for initiative.
// Using a local interface keeps this package free of the dice import.
type Source interface {
	Intn(n int) int
}

// InitiativeBonus returns floor(intelligence/10).
func InitiativeBonus(intelligence int) int {
	q := intelligence / 10
	if intelligence < 0 && intelligence%10 != 0 {
		q--
	}
	return q
}

// RollInitiative rolls a participant's initiative.
// Formula: d10 + floor(INT/10).
//
// Precondition: src must be non-nil.
// Postcondition: Returns a value in [1+bonus, 10+bonus].
func RollInitiative(intelligence int, src Source) int {
	return src.Intn(10) + 1 + InitiativeBonus(intelligence)
}
