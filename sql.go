package filter

import (
	"gorm.io/gorm"

	"github.com/nlstn/go-filter/internal/binder"
)

// Where translates the expression into a SQL WHERE clause with
// positional placeholders and the corresponding argument values, for
// callers that push filtering into a database query instead of (or in
// addition to) evaluating in memory.
//
// Only top-level members can be translated; navigation paths return an
// *EvaluationError because join construction is out of scope here.
// String equality translates to a LOWER(...) comparison to match the
// case-insensitive in-memory semantics.
func (e *Expression[T]) Where() (string, []any, error) {
	return binder.SQL(e.ast, e.pred.Type())
}

// Scope returns a GORM scope applying the translated WHERE clause, for
// use with db.Scopes(...). A translation failure is recorded on the
// statement via AddError, matching GORM's error accumulation model.
func (e *Expression[T]) Scope() func(*gorm.DB) *gorm.DB {
	clause, args, err := e.Where()
	return func(db *gorm.DB) *gorm.DB {
		if err != nil {
			_ = db.AddError(err)
			return db
		}
		return db.Where(clause, args...)
	}
}
