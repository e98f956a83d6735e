package filter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Address struct {
	City    string
	ZipCode string
}

type Company struct {
	Name    string
	Address Address
}

type Employee struct {
	ID       uuid.UUID
	Name     string
	Age      int
	Salary   decimal.Decimal
	IsActive bool
	HiredAt  time.Time
	Nickname *string
	Company  Company
	Manager  *Employee
}

func sampleEmployee() Employee {
	nick := "Johnny"
	return Employee{
		ID:       uuid.MustParse("a3bb189e-8bf9-3888-9912-ace4e6543002"),
		Name:     "John",
		Age:      30,
		Salary:   decimal.RequireFromString("4999.50"),
		IsActive: true,
		HiredAt:  time.Date(2020, 6, 15, 9, 30, 0, 0, time.UTC),
		Nickname: &nick,
		Company: Company{
			Name:    "Acme Inc",
			Address: Address{City: "New York", ZipCode: "10001"},
		},
		Manager: &Employee{Name: "Ada", Age: 45},
	}
}

func TestDeserialize(t *testing.T) {
	e := sampleEmployee()

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"Simple comparison", "Age > 18", true},
		{"Conjunction", `Age > 18 && Name != "Jane"`, true},
		{"Case-insensitive string equality", `Name == "JOHN"`, true},
		{"Method call", `Name.Contains("oh")`, true},
		{"Method call is case-sensitive", `Name.Contains("OH")`, false},
		{"Nested member", `Company.Address.City == "new york"`, true},
		{"Precedence", `Age > 65 && IsActive || Name == "John"`, true},
		{"Grouping", `Age > 65 && (IsActive || Name == "John")`, false},
		{"Negation", `!(Age > 65)`, true},
		{"Null check", "Manager != null", true},
		{"Navigation through pointer", `Manager.Name.StartsWith("A")`, true},
		{"Decimal comparison", "Salary <= 4999.5", true},
		{"Date comparison", `HiredAt >= "2020-01-01"`, true},
		{"UUID comparison", `ID == "A3BB189E-8BF9-3888-9912-ACE4E6543002"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Deserialize[Employee](tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, expr.Evaluate(e))
		})
	}
}

func TestDeserializeFilterSlice(t *testing.T) {
	people := []Employee{
		{Name: "John", Age: 30, IsActive: true},
		{Name: "Jane", Age: 17, IsActive: true},
		{Name: "Jim", Age: 40, IsActive: false},
	}

	expr, err := Deserialize[Employee]("Age >= 18 && IsActive")
	require.NoError(t, err)

	var matched []string
	for _, p := range people {
		if expr.Evaluate(p) {
			matched = append(matched, p.Name)
		}
	}
	assert.Equal(t, []string{"John"}, matched)
}

func TestExpressionIsReusableAndDeterministic(t *testing.T) {
	expr, err := Deserialize[Employee]("Age >= 21")
	require.NoError(t, err)

	adult := Employee{Age: 30}
	minor := Employee{Age: 20}

	for i := 0; i < 5; i++ {
		assert.True(t, expr.Evaluate(adult))
		assert.False(t, expr.Evaluate(minor))
	}
}

func TestExpressionSourceAndString(t *testing.T) {
	input := `Age>18 && Name!="John"`
	expr, err := Deserialize[Employee](input)
	require.NoError(t, err)

	assert.Equal(t, input, expr.Source())
	assert.Equal(t, `((Age > 18) && (Name != "John"))`, expr.String())

	// The canonical form compiles back to an equivalent expression.
	again, err := Deserialize[Employee](expr.String())
	require.NoError(t, err)
	assert.Equal(t, expr.String(), again.String())

	e := sampleEmployee()
	assert.Equal(t, expr.Evaluate(e), again.Evaluate(e))
}

func TestDeserializePointerType(t *testing.T) {
	expr, err := Deserialize[*Employee]("Age > 18")
	require.NoError(t, err)

	e := sampleEmployee()
	assert.True(t, expr.Evaluate(&e))

	// A nil entity evaluates to false rather than panicking.
	assert.False(t, expr.Evaluate(nil))
}

func TestDeserializeErrorKinds(t *testing.T) {
	t.Run("Tokenization error", func(t *testing.T) {
		_, err := Deserialize[Employee]("Age @ 18")
		require.Error(t, err)
		assert.True(t, IsTokenizationError(err))
		assert.False(t, IsParseError(err))
		assert.Contains(t, err.Error(), "tokenization failed")

		var tokErr *TokenizationError
		require.ErrorAs(t, err, &tokErr)
		assert.Equal(t, '@', tokErr.Char)
		assert.Equal(t, 4, tokErr.Pos)
	})

	t.Run("Parse error", func(t *testing.T) {
		_, err := Deserialize[Employee]("Age > ")
		require.Error(t, err)
		assert.True(t, IsParseError(err))
		assert.False(t, IsTokenizationError(err))
		assert.Contains(t, err.Error(), "parsing failed")

		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, 6, parseErr.Pos)
	})

	t.Run("Evaluation error", func(t *testing.T) {
		_, err := Deserialize[Employee]("Unknown > 18")
		require.Error(t, err)
		assert.True(t, IsEvaluationError(err))
		assert.False(t, IsParseError(err))
		assert.Contains(t, err.Error(), "binding failed")

		var evalErr *EvaluationError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, "Employee", evalErr.Type)
		assert.Equal(t, "Unknown", evalErr.Path)
	})

	t.Run("Struct member comparison", func(t *testing.T) {
		// Equality on struct members has no defined semantics; it must
		// fail at bind time rather than silently evaluating false.
		_, err := Deserialize[Employee]("Company == Company")
		require.Error(t, err)
		assert.True(t, IsEvaluationError(err))

		var evalErr *EvaluationError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, "Company", evalErr.Path)
		assert.Contains(t, err.Error(), "not defined for struct operands")

		_, err = Deserialize[Employee]("Company != Company")
		require.Error(t, err)
		assert.True(t, IsEvaluationError(err))
	})

	t.Run("Helpers reject nil", func(t *testing.T) {
		assert.False(t, IsTokenizationError(nil))
		assert.False(t, IsParseError(nil))
		assert.False(t, IsEvaluationError(nil))
	})

	t.Run("Helpers reject unrelated errors", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, IsTokenizationError(err))
		assert.False(t, IsParseError(err))
		assert.False(t, IsEvaluationError(err))
	})
}

func TestDeserializeLengthLimit(t *testing.T) {
	pad := func(n int) string {
		base := "Age > 18"
		return base + strings.Repeat(" ", n-len(base))
	}

	_, err := Deserialize[Employee](pad(DefaultMaxLength))
	require.NoError(t, err)

	_, err = Deserialize[Employee](pad(DefaultMaxLength + 1))
	require.Error(t, err)
	require.True(t, IsTokenizationError(err))

	var tokErr *TokenizationError
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, DefaultMaxLength+1, tokErr.Length)
	assert.Equal(t, DefaultMaxLength, tokErr.Limit)
}

func TestDeserializeDepthLimit(t *testing.T) {
	nested := func(depth int) string {
		return strings.Repeat("(", depth) + "Age > 18" + strings.Repeat(")", depth)
	}

	_, err := Deserialize[Employee](nested(DefaultMaxDepth))
	require.NoError(t, err)

	_, err = Deserialize[Employee](nested(DefaultMaxDepth + 1))
	require.Error(t, err)
	require.True(t, IsParseError(err))

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, DefaultMaxDepth, parseErr.Depth)
}

func TestDeserializeOptions(t *testing.T) {
	t.Run("WithMaxLength", func(t *testing.T) {
		_, err := Deserialize[Employee]("Age > 18", WithMaxLength(5))
		require.Error(t, err)
		assert.True(t, IsTokenizationError(err))

		_, err = Deserialize[Employee]("Age > 18", WithMaxLength(8))
		assert.NoError(t, err)
	})

	t.Run("WithMaxDepth", func(t *testing.T) {
		_, err := Deserialize[Employee]("(((Age > 18)))", WithMaxDepth(2))
		require.Error(t, err)
		assert.True(t, IsParseError(err))

		_, err = Deserialize[Employee]("(((Age > 18)))", WithMaxDepth(3))
		assert.NoError(t, err)
	})

	t.Run("WithLogger", func(t *testing.T) {
		var buf strings.Builder
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		_, err := Deserialize[Employee]("Unknown > 18", WithLogger(logger))
		require.Error(t, err)
		assert.Contains(t, buf.String(), "filter compilation failed")
		assert.Contains(t, buf.String(), "bind")
	})
}

func TestDeserializeContextCancelledStillCompiles(t *testing.T) {
	// Compilation is synchronous and cheap; the context only attaches
	// tracing and never aborts the pipeline.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	expr, err := DeserializeContext[Employee](ctx, "Age > 18")
	require.NoError(t, err)
	assert.True(t, expr.Evaluate(Employee{Age: 30}))
}
