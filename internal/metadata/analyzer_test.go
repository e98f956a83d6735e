package metadata

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type address struct {
	City    string
	ZipCode string
}

type company struct {
	Name    string
	Address address
}

type employee struct {
	ID        uuid.UUID
	Name      string
	Age       int
	Salary    decimal.Decimal
	Rating    float64
	IsActive  bool
	HiredAt   time.Time
	Nickname  *string
	Company   company
	Manager   *employee
	Tags      []string
	secretKey string
}

func TestAnalyzeKinds(t *testing.T) {
	meta, err := Analyze(reflect.TypeOf(employee{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		field string
		kind  Kind
	}{
		{"ID", KindUUID},
		{"Name", KindString},
		{"Age", KindNumber},
		{"Salary", KindNumber},
		{"Rating", KindNumber},
		{"IsActive", KindBool},
		{"HiredAt", KindTime},
		{"Nickname", KindString},
		{"Company", KindStruct},
		{"Manager", KindStruct},
		{"Tags", KindUnsupported},
	}

	for _, tt := range tests {
		prop, ok := meta.Properties[tt.field]
		if !ok {
			t.Errorf("property %s not found", tt.field)
			continue
		}
		if prop.Kind != tt.kind {
			t.Errorf("property %s: expected kind %v, got %v", tt.field, tt.kind, prop.Kind)
		}
	}

	if _, ok := meta.Properties["secretKey"]; ok {
		t.Error("unexported fields must not be analyzed")
	}

	if !meta.Properties["Nickname"].IsPointer {
		t.Error("Nickname should be marked as a pointer member")
	}
	if meta.Properties["Nickname"].Type.Kind() != reflect.String {
		t.Error("pointer members should expose their dereferenced type")
	}
}

func TestAnalyzeRejectsNonStruct(t *testing.T) {
	if _, err := Analyze(reflect.TypeOf(42)); err == nil {
		t.Fatal("expected error for non-struct type")
	}
}

func TestResolvePath(t *testing.T) {
	meta, err := Analyze(reflect.TypeOf(employee{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acc, err := meta.ResolvePath([]string{"Company", "Address", "City"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc.Kind() != KindString {
		t.Errorf("expected kind %v, got %v", KindString, acc.Kind())
	}

	e := employee{Company: company{Address: address{City: "NY"}}}
	v, ok := acc.Get(reflect.ValueOf(e))
	if !ok {
		t.Fatal("expected resolution to succeed")
	}
	if v.String() != "NY" {
		t.Errorf("expected NY, got %q", v.String())
	}
}

func TestResolvePathThroughPointer(t *testing.T) {
	meta, err := Analyze(reflect.TypeOf(employee{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acc, err := meta.ResolvePath([]string{"Manager", "Name"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	boss := employee{Name: "Ada"}
	e := employee{Manager: &boss}
	v, ok := acc.Get(reflect.ValueOf(e))
	if !ok || v.String() != "Ada" {
		t.Errorf("expected Ada, got ok=%v value=%v", ok, v)
	}

	// A nil pointer anywhere along the chain reports ok=false.
	if _, ok := acc.Get(reflect.ValueOf(employee{})); ok {
		t.Error("expected ok=false for nil navigation")
	}
}

func TestResolvePathNilFinalPointer(t *testing.T) {
	meta, err := Analyze(reflect.TypeOf(employee{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acc, err := meta.ResolvePath([]string{"Nickname"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := acc.Get(reflect.ValueOf(employee{})); ok {
		t.Error("expected ok=false for a nil final member")
	}

	nick := "Lin"
	v, ok := acc.Get(reflect.ValueOf(employee{Nickname: &nick}))
	if !ok || v.String() != "Lin" {
		t.Errorf("expected Lin, got ok=%v value=%v", ok, v)
	}
}

func TestResolvePathErrors(t *testing.T) {
	meta, err := Analyze(reflect.TypeOf(employee{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		path    []string
		message string
	}{
		{"Unknown member", []string{"Unknown"}, `member "Unknown" not found on type employee`},
		{"Unknown nested member", []string{"Company", "Address", "Street"}, `member "Street" not found on type address`},
		{"Navigation through scalar", []string{"Age", "Value"}, "not a navigable member"},
		{"Unsupported member kind", []string{"Tags"}, "does not support filtering"},
		{"Empty path", nil, "empty member path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := meta.ResolvePath(tt.path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("expected message containing %q, got %q", tt.message, err.Error())
			}
		})
	}
}
