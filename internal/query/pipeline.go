// Package query implements the list-view pipeline shared by every list page:
// filter records with composed predicates, order them with a single sort key,
// page the result and tally bucket counts for summary cards.
//
// The pipeline is pure. It never mutates its input, performs no I/O and holds
// no state between calls, so callers may recompute a view on every change of
// records or [ViewState].
package query

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// ViewState is the user-controlled search, filter and sort configuration of
// one list. It is created with [DefaultViewState] and never persisted.
//
// Filters are combined with AND; their order does not matter.
type ViewState struct {
	SearchQuery  string
	SearchFields []string // empty = schema defaults
	Filters      []FilterCriterion
	Sort         SortSpec
}

// DefaultViewState returns the state a list starts with: no search, no
// filters, the schema's default sort.
func DefaultViewState(schema *Schema) ViewState {
	return ViewState{Sort: schema.DefaultSort()}
}

// Key returns a canonical string identifying the state. Equal states produce
// equal keys, which is what [Memo] relies on.
func (v ViewState) Key() string {
	var b strings.Builder

	b.WriteString("q=")
	b.WriteString(strconv.Quote(v.SearchQuery))
	b.WriteString(";in=")
	b.WriteString(strings.Join(v.SearchFields, ","))

	for _, f := range v.Filters {
		b.WriteString(";f=")
		b.WriteString(strconv.Quote(filterKey(f)))
		b.WriteString("/")
		b.WriteString(f.Value.Kind().String())
	}

	b.WriteString(";s=")
	b.WriteString(v.Sort.String())

	return b.String()
}

// filterKey is like [FilterCriterion.String] but keeps the full instant of
// date operands, which [record.Value.Text] truncates to the day.
func filterKey(f FilterCriterion) string {
	if t, ok := f.Value.Time(); ok && f.Operator != OpInRange && f.Operator != OpAll {
		return f.Field + ":" + string(f.Operator) + ":" + t.UTC().Format(time.RFC3339Nano)
	}

	return f.String()
}

// Options configures plan compilation.
type Options struct {
	// Logger receives warnings about skipped records. Nil means no logging.
	Logger *zap.Logger
	// Locale drives string collation. The zero tag means English.
	Locale language.Tag
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}

	return o.Logger
}

func (o Options) locale() language.Tag {
	if o.Locale.IsRoot() {
		return language.English
	}

	return o.Locale
}

// Plan is a validated ViewState ready to run against record sets.
// A Plan is immutable and safe for concurrent use.
type Plan struct {
	schema    *Schema
	predicate Predicate
	sort      SortSpec
	locale    language.Tag
	logger    *zap.Logger
}

// Compile validates state against schema. Unknown fields, unknown operators
// and operands that do not fit the field's kind fail here, before any record
// is read, wrapped as [*FieldError].
func Compile(schema *Schema, state ViewState, opts Options) (*Plan, error) {
	predicate, err := Compose(schema, state.Filters, state.SearchQuery, state.SearchFields)
	if err != nil {
		return nil, err
	}

	err = validateSort(schema, state.Sort)
	if err != nil {
		return nil, err
	}

	return &Plan{
		schema:    schema,
		predicate: predicate,
		sort:      state.Sort,
		locale:    opts.locale(),
		logger:    opts.logger().With(zap.String("schema", schema.Name())),
	}, nil
}

// MustCompile is like [Compile] but panics on configuration errors. Use it for
// views built from constants.
func MustCompile(schema *Schema, state ViewState, opts Options) *Plan {
	plan, err := Compile(schema, state, opts)
	if err != nil {
		panic("query: " + err.Error())
	}

	return plan
}

// Skip describes one record left out of a view because it was malformed.
type Skip struct {
	Index int // position in the input slice
	Err   error
}

// Result is the output of one [Plan.Apply] call.
type Result struct {
	Records []record.Record // matching records in view order; never nil
	Skipped []Skip          // malformed input records, in input order
	Total   int             // number of input records
}

// Apply filters records and stably sorts the matches into a new slice.
// Records without an ID are skipped, logged and reported in Result.Skipped;
// the rest of the batch is still processed.
func (p *Plan) Apply(records []record.Record) Result {
	out := make([]record.Record, 0, len(records))

	var skipped []Skip

	for i, rec := range records {
		if rec.Malformed() {
			skipped = append(skipped, Skip{Index: i, Err: ErrMalformedRecord})
			p.logger.Warn("skipping record", zap.Int("index", i), zap.Error(ErrMalformedRecord))

			continue
		}

		if p.predicate(rec) {
			out = append(out, rec)
		}
	}

	if p.sort.Field != "" {
		// Validated in Compile; building cannot fail here.
		compare, _ := BuildComparator(p.schema, p.sort, p.locale)
		slices.SortStableFunc(out, compare)
	}

	return Result{Records: out, Skipped: skipped, Total: len(records)}
}

// Pipeline binds a schema and options so pages can compute views directly.
type Pipeline struct {
	schema *Schema
	opts   Options
}

// New returns a pipeline for one entity schema.
func New(schema *Schema, opts Options) *Pipeline {
	return &Pipeline{schema: schema, opts: opts}
}

// Schema returns the pipeline's schema.
func (p *Pipeline) Schema() *Schema { return p.schema }

// Run compiles state and applies it to records.
func (p *Pipeline) Run(records []record.Record, state ViewState) (Result, error) {
	plan, err := Compile(p.schema, state, p.opts)
	if err != nil {
		return Result{}, err
	}

	return plan.Apply(records), nil
}

// ComputeView returns the ordered records of the view described by state.
func (p *Pipeline) ComputeView(records []record.Record, state ViewState) ([]record.Record, error) {
	res, err := p.Run(records, state)
	if err != nil {
		return nil, err
	}

	return res.Records, nil
}

// ComputeView is the one-shot form of [Pipeline.ComputeView] with default options.
func ComputeView(schema *Schema, records []record.Record, state ViewState) ([]record.Record, error) {
	return New(schema, Options{}).ComputeView(records, state)
}
