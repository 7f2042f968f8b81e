package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged dice rolling.
// All rolls are logged at debug level with a purpose label, the dice values,
// modifier, and total so a disputed combat outcome can be reconstructed.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Source returns the underlying randomness provider.
func (r *Roller) Source() Source { return r.src }

// Roll evaluates expr and logs the result under purpose.
//
// Precondition: expr must come from Parse.
func (r *Roller) Roll(purpose string, expr Expression) RollResult {
	result := Roll(expr, r.src)
	r.logger.Debug("dice roll",
		zap.String("purpose", purpose),
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}

// RollExpr parses expr and rolls it, logging the result.
//
// Postcondition: Returns a RollResult or a parse error.
func (r *Roller) RollExpr(purpose, expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(purpose, e), nil
}

// Percentile rolls d100.
//
// Postcondition: Returns a value in [1, 100].
func (r *Roller) Percentile(purpose string) int {
	return r.Roll(purpose, d100).Total()
}

// D20 rolls a single d20.
//
// Postcondition: Returns a value in [1, 20].
func (r *Roller) D20(purpose string) int {
	return r.Roll(purpose, d20).Total()
}

// D10 rolls a single d10.
//
// Postcondition: Returns a value in [1, 10].
func (r *Roller) D10(purpose string) int {
	return r.Roll(purpose, d10).Total()
}
