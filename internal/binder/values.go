package binder

import (
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nlstn/go-filter/internal/expr"
	"github.com/nlstn/go-filter/internal/metadata"
)

// value is a member or literal normalized for comparison. Numbers are
// always decimal.Decimal so that int, uint, float, and decimal members
// compare exactly, independent of any locale or float formatting.
type value struct {
	str string
	num decimal.Decimal
	b   bool
	t   time.Time
}

// dateOnly is the fallback layout for date literals without a time part.
const dateOnly = "2006-01-02"

// memberValue normalizes a resolved (dereferenced) member value.
func memberValue(v reflect.Value, kind metadata.Kind) value {
	switch kind {
	case metadata.KindString:
		return value{str: v.String()}
	case metadata.KindUUID:
		return value{str: v.Interface().(uuid.UUID).String()}
	case metadata.KindBool:
		return value{b: v.Bool()}
	case metadata.KindTime:
		return value{t: v.Interface().(time.Time)}
	case metadata.KindNumber:
		return value{num: memberNumber(v)}
	}
	return value{}
}

func memberNumber(v reflect.Value) decimal.Decimal {
	if v.Type() == reflect.TypeOf(decimal.Decimal{}) {
		return v.Interface().(decimal.Decimal)
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.NewFromUint64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return decimal.NewFromFloat(v.Float())
	}
	return decimal.Decimal{}
}

// literalValue parses a literal into the kind inferred from its
// comparison partner. Numeric parsing goes through decimal.NewFromString,
// which accepts only the fixed '.' decimal separator.
func (b *binder) literalValue(lit *expr.LiteralExpr, kind metadata.Kind, path string) (value, error) {
	switch kind {
	case metadata.KindString:
		if lit.Kind != expr.LiteralString {
			return value{}, b.errf(path, "cannot compare a string member with %s literal %q",
				literalKindName(lit.Kind), lit.Raw)
		}
		return value{str: lit.Raw}, nil

	case metadata.KindUUID:
		if lit.Kind != expr.LiteralString {
			return value{}, b.errf(path, "cannot compare a uuid member with %s literal %q",
				literalKindName(lit.Kind), lit.Raw)
		}
		u, err := uuid.Parse(lit.Raw)
		if err != nil {
			return value{}, b.errf(path, "cannot parse %q as a uuid", lit.Raw)
		}
		return value{str: u.String()}, nil

	case metadata.KindNumber:
		if lit.Kind != expr.LiteralNumber {
			return value{}, b.errf(path, "cannot compare a numeric member with %s literal %q",
				literalKindName(lit.Kind), lit.Raw)
		}
		d, err := decimal.NewFromString(lit.Raw)
		if err != nil {
			return value{}, b.errf(path, "cannot parse %q as a number", lit.Raw)
		}
		return value{num: d}, nil

	case metadata.KindBool:
		if lit.Kind != expr.LiteralBoolean {
			return value{}, b.errf(path, "cannot compare a boolean member with %s literal %q",
				literalKindName(lit.Kind), lit.Raw)
		}
		return value{b: strings.EqualFold(lit.Raw, "true")}, nil

	case metadata.KindTime:
		if lit.Kind != expr.LiteralString {
			return value{}, b.errf(path, "cannot compare a date member with %s literal %q",
				literalKindName(lit.Kind), lit.Raw)
		}
		if t, err := time.Parse(time.RFC3339, lit.Raw); err == nil {
			return value{t: t}, nil
		}
		if t, err := time.Parse(dateOnly, lit.Raw); err == nil {
			return value{t: t}, nil
		}
		return value{}, b.errf(path, "cannot parse %q as a date (expected RFC 3339 or YYYY-MM-DD)", lit.Raw)
	}

	return value{}, b.errf(path, "unsupported member kind %s", kind)
}

// naturalKind maps a literal onto the member kind it carries on its own,
// used when a literal is compared with another literal.
func naturalKind(lit *expr.LiteralExpr) metadata.Kind {
	switch lit.Kind {
	case expr.LiteralString:
		return metadata.KindString
	case expr.LiteralNumber:
		return metadata.KindNumber
	case expr.LiteralBoolean:
		return metadata.KindBool
	}
	return metadata.KindUnsupported
}

func literalKindName(k expr.LiteralKind) string {
	switch k {
	case expr.LiteralString:
		return "a string"
	case expr.LiteralNumber:
		return "a number"
	case expr.LiteralBoolean:
		return "a boolean"
	case expr.LiteralNull:
		return "the null"
	}
	return "an unknown"
}
