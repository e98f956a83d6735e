package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind classifies a resolved member for operator compatibility checks.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindTime
	KindUUID
	KindStruct
	KindUnsupported
)

// String returns a human-readable kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindTime:
		return "date"
	case KindUUID:
		return "uuid"
	case KindStruct:
		return "struct"
	}
	return "unsupported"
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// Property holds metadata for a single exported struct field.
type Property struct {
	Name      string
	Kind      Kind
	Type      reflect.Type // field type with pointers stripped
	Index     int          // field index within the owning struct
	IsPointer bool
}

// TypeMetadata holds the member table of one struct type. It is built
// fresh per compilation; no package-level cache is kept, so concurrent
// compilations need no coordination.
type TypeMetadata struct {
	Type       reflect.Type
	Properties map[string]*Property
}

// Analyze builds the member table for a struct type. Pointer types are
// dereferenced first.
func Analyze(t reflect.Type) (*TypeMetadata, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("target type must be a struct, got %s", t.Kind())
	}

	meta := &TypeMetadata{
		Type:       t,
		Properties: make(map[string]*Property, t.NumField()),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		ft := field.Type
		isPointer := ft.Kind() == reflect.Ptr
		if isPointer {
			ft = ft.Elem()
		}

		meta.Properties[field.Name] = &Property{
			Name:      field.Name,
			Kind:      classify(ft),
			Type:      ft,
			Index:     i,
			IsPointer: isPointer,
		}
	}

	return meta, nil
}

// classify maps a dereferenced field type onto a member kind.
func classify(t reflect.Type) Kind {
	switch t {
	case timeType:
		return KindTime
	case uuidType:
		return KindUUID
	case decimalType:
		return KindNumber
	}

	switch t.Kind() {
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.Struct:
		return KindStruct
	}
	return KindUnsupported
}

// Accessor is a pre-resolved navigation chain through one or more
// struct levels. Resolution happens once at bind time; evaluation only
// follows field indices and never looks up names again.
type Accessor struct {
	steps []step
	prop  *Property // the final, non-struct member
}

type step struct {
	index     int
	isPointer bool
}

// Kind returns the kind of the member the accessor resolves to.
func (a *Accessor) Kind() Kind { return a.prop.Kind }

// Type returns the dereferenced type of the resolved member.
func (a *Accessor) Type() reflect.Type { return a.prop.Type }

// IsPointer reports whether the final member is a pointer field.
func (a *Accessor) IsPointer() bool { return a.prop.IsPointer }

// Get follows the accessor's field chain on an instance of the root
// type. It returns ok=false when a nil pointer is encountered anywhere
// along the chain, including a nil final member.
func (a *Accessor) Get(root reflect.Value) (reflect.Value, bool) {
	v := root
	for _, s := range a.steps {
		v = v.Field(s.index)
		if s.isPointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
	}
	return v, true
}

// ResolvePath resolves a dotted member path against the metadata of the
// root type, descending through nested struct members of arbitrary
// depth. The returned error names the type at which resolution stopped.
func (m *TypeMetadata) ResolvePath(path []string) (*Accessor, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("empty member path")
	}

	acc := &Accessor{}
	meta := m

	for i, segment := range path {
		prop, ok := meta.Properties[segment]
		if !ok {
			return nil, fmt.Errorf("member %q not found on type %s", segment, meta.Type.Name())
		}

		acc.steps = append(acc.steps, step{index: prop.Index, isPointer: prop.IsPointer})

		if i == len(path)-1 {
			if prop.Kind == KindUnsupported {
				return nil, fmt.Errorf("member %q of type %s does not support filtering",
					segment, prop.Type)
			}
			acc.prop = prop
			return acc, nil
		}

		if prop.Kind != KindStruct {
			return nil, fmt.Errorf("member %q of type %s is not a navigable member",
				strings.Join(path[:i+1], "."), prop.Type)
		}

		next, err := Analyze(prop.Type)
		if err != nil {
			return nil, err
		}
		meta = next
	}

	// Unreachable: the loop returns on the final segment.
	return nil, fmt.Errorf("empty member path")
}
