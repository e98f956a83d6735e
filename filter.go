// Package filter compiles textual boolean filter expressions such as
//
//	Age > 18 && Name != "John"
//
// into safely-typed, reusable predicates over a statically known struct
// type. Filter text can come from configuration, a query string, or a
// stored definition; it is checked and bound against the real shape of
// the target type before first use.
//
// The pipeline is tokenizer → recursive-descent parser → AST → binder.
// Supported are boolean-returning comparisons, the string predicate
// methods Contains, StartsWith, and EndsWith, the logical combinators
// &&, || and !, and parentheses. There are no arithmetic operators,
// collection quantifiers, or user-defined functions.
//
// Compilation is synchronous and share-nothing; concurrent Deserialize
// calls need no coordination, and the returned expression is safe for
// concurrent evaluation.
package filter

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/nlstn/go-filter/internal/binder"
	"github.com/nlstn/go-filter/internal/expr"
	"github.com/nlstn/go-filter/internal/observability"
)

const (
	// DefaultMaxLength is the maximum accepted expression length in bytes.
	DefaultMaxLength = expr.DefaultMaxLength
	// DefaultMaxDepth is the maximum accepted nesting depth.
	DefaultMaxDepth = expr.DefaultMaxDepth
)

type config struct {
	maxLength int
	maxDepth  int
	logger    *slog.Logger
}

// Option configures a Deserialize call.
type Option func(*config)

// WithMaxLength overrides the maximum expression length.
func WithMaxLength(n int) Option {
	return func(c *config) { c.maxLength = n }
}

// WithMaxDepth overrides the maximum nesting depth.
func WithMaxDepth(n int) Option {
	return func(c *config) { c.maxDepth = n }
}

// WithLogger sets a logger for debug-level compile diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func newConfig(opts []Option) config {
	cfg := config{
		maxLength: DefaultMaxLength,
		maxDepth:  DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Expression is a compiled filter expression bound to the target type T.
// It owns no reference back into tokenizer or parser state.
type Expression[T any] struct {
	source string
	ast    expr.ASTNode
	pred   *binder.Predicate
}

// Deserialize compiles filter text into a predicate over T. T may be a
// struct type or a pointer to one. On failure one of the three error
// kinds is returned: *TokenizationError, *ParseError, or
// *EvaluationError, each wrapped with the failing pipeline stage.
func Deserialize[T any](input string, opts ...Option) (*Expression[T], error) {
	return DeserializeContext[T](context.Background(), input, opts...)
}

// DeserializeContext is Deserialize with a caller-supplied context, so
// the compile span joins the caller's trace.
func DeserializeContext[T any](ctx context.Context, input string, opts ...Option) (*Expression[T], error) {
	cfg := newConfig(opts)
	target := targetType[T]()

	inst := observability.Default()
	ctx, span := inst.StartCompile(ctx, target.Name(), len(input))
	start := time.Now()

	e, stage, err := compile[T](input, target, cfg)
	inst.EndCompile(ctx, span, target.Name(), start, stage, err)

	if err != nil && cfg.logger != nil {
		cfg.logger.DebugContext(ctx, "filter compilation failed",
			slog.String("stage", stage),
			slog.String("target", target.Name()),
			slog.Any("error", err))
	}
	return e, err
}

// compile runs the pipeline. It returns the failing stage name for
// diagnostics, empty on success.
func compile[T any](input string, target reflect.Type, cfg config) (*Expression[T], string, error) {
	tokenizer := expr.NewTokenizer(input, cfg.maxLength)
	tokens, err := tokenizer.TokenizeAll()
	if err != nil {
		return nil, observability.StageTokenize, fmt.Errorf("tokenization failed: %w", err)
	}

	parser := expr.NewParser(tokens, cfg.maxDepth)
	ast, err := parser.Parse()
	if err != nil {
		return nil, observability.StageParse, fmt.Errorf("parsing failed: %w", err)
	}

	pred, err := binder.Bind(ast, target)
	if err != nil {
		return nil, observability.StageBind, fmt.Errorf("binding failed: %w", err)
	}

	return &Expression[T]{source: input, ast: ast, pred: pred}, "", nil
}

// targetType returns the dereferenced struct type for T.
func targetType[T any]() reflect.Type {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// Evaluate applies the predicate to one entity. A nil pointer entity
// evaluates to false.
func (e *Expression[T]) Evaluate(entity T) bool {
	v := reflect.Indirect(reflect.ValueOf(entity))
	if !v.IsValid() {
		return false
	}
	return e.pred.Evaluate(v)
}

// Source returns the original filter text the expression was compiled
// from.
func (e *Expression[T]) Source() string {
	return e.source
}

// String returns the canonical textual form of the expression. The
// result re-parses to a structurally equal tree, so it is suitable for
// diagnostics and round-tripping.
func (e *Expression[T]) String() string {
	return expr.Format(e.ast)
}
