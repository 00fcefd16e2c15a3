// Package entity maps backend payloads for risks, tasks and resources onto
// pipeline records and declares the schema each list view runs against.
package entity

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/query"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// Kind names an entity list. The value doubles as the API path segment.
type Kind string

const (
	Risks     Kind = "risks"
	Tasks     Kind = "tasks"
	Resources Kind = "resources"
)

// ErrUnknownKind is returned for list names other than risks, tasks and resources.
var ErrUnknownKind = errors.New("unknown entity kind")

// Kinds lists every entity kind in display order.
func Kinds() []Kind { return []Kind{Risks, Tasks, Resources} }

// ParseKind accepts the plural name or its singular form.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	if !strings.HasSuffix(string(k), "s") {
		k += "s"
	}

	if !slices.Contains(Kinds(), k) {
		return "", fmt.Errorf("%w: %q (valid: risks, tasks, resources)", ErrUnknownKind, name)
	}

	return k, nil
}

// DefaultLowStockRatio is the share of total capacity under which a resource
// is flagged as low on stock.
const DefaultLowStockRatio = 0.2

// Rules carries the tunable derivation thresholds.
type Rules struct {
	SeverityBands query.Bands
	LowStockRatio float64
}

// DefaultRules returns High >= 7, Medium >= 4 and a 0.2 low-stock ratio.
func DefaultRules() Rules {
	return Rules{
		SeverityBands: query.DefaultSeverityBands(),
		LowStockRatio: DefaultLowStockRatio,
	}
}

// Entity bundles what a list view needs for one kind.
type Entity struct {
	Kind   Kind
	Schema *query.Schema
	Decode func(body []byte) ([]record.Record, error)

	// Summary buckets records for the summary and dashboard commands.
	Summary      query.BucketFunc
	SummaryField string
	SummaryOrder []string
}

// Catalog holds one Entity per kind.
type Catalog struct {
	rules    Rules
	entities map[Kind]Entity
}

// NewCatalog builds the catalog for the given rules. Zero-valued rules fall
// back to the defaults.
func NewCatalog(rules Rules) *Catalog {
	defaults := DefaultRules()
	if len(rules.SeverityBands) == 0 {
		rules.SeverityBands = defaults.SeverityBands
	}

	if rules.LowStockRatio <= 0 {
		rules.LowStockRatio = defaults.LowStockRatio
	}

	risks := RiskSchema()
	tasks := TaskSchema()
	resources := ResourceSchema(rules.LowStockRatio)

	c := &Catalog{rules: rules, entities: make(map[Kind]Entity, 3)}

	c.entities[Risks] = Entity{
		Kind:         Risks,
		Schema:       risks,
		Decode:       recordsOf(DecodeRisks, Risk.ToRecord),
		Summary:      query.BandBucket(risks, "severity", rules.SeverityBands),
		SummaryField: "severity",
		SummaryOrder: rules.SeverityBands.Labels(),
	}

	c.entities[Tasks] = Entity{
		Kind:         Tasks,
		Schema:       tasks,
		Decode:       recordsOf(DecodeTasks, Task.ToRecord),
		Summary:      query.FieldBucket(tasks, "status"),
		SummaryField: "status",
		SummaryOrder: []string{"todo", "in_progress", "review", "done"},
	}

	c.entities[Resources] = Entity{
		Kind:         Resources,
		Schema:       resources,
		Decode:       recordsOf(DecodeResources, Resource.ToRecord),
		Summary:      query.FieldBucket(resources, "type"),
		SummaryField: "type",
	}

	return c
}

// Rules returns the effective rules after defaults were applied.
func (c *Catalog) Rules() Rules { return c.rules }

// Get returns the entity for kind.
func (c *Catalog) Get(kind Kind) (Entity, error) {
	e, ok := c.entities[kind]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	return e, nil
}

// Schemas returns the schema per kind.
func (c *Catalog) Schemas() map[Kind]*query.Schema {
	out := make(map[Kind]*query.Schema, len(c.entities))
	for k, e := range c.entities {
		out[k] = e.Schema
	}

	return out
}

// SummarizeBy returns a bucket function for an arbitrary field of the
// entity. Severity-style number fields use the configured bands; everything
// else groups by text.
func (c *Catalog) SummarizeBy(e Entity, field string) (query.BucketFunc, []string, error) {
	if field == "" || field == e.SummaryField {
		return e.Summary, e.SummaryOrder, nil
	}

	kind, ok := e.Schema.Kind(field)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s.%s", query.ErrUnknownField, e.Schema.Name(), field)
	}

	if field == "severity" && kind == record.KindNumber {
		return query.BandBucket(e.Schema, field, c.rules.SeverityBands), c.rules.SeverityBands.Labels(), nil
	}

	return query.FieldBucket(e.Schema, field), nil, nil
}

func recordsOf[T any](decode func([]byte) ([]T, error), convert func(T) record.Record) func([]byte) ([]record.Record, error) {
	return func(body []byte) ([]record.Record, error) {
		items, err := decode(body)
		if err != nil {
			return nil, err
		}

		records := make([]record.Record, len(items))
		for i, item := range items {
			records[i] = convert(item)
		}

		return records, nil
	}
}
