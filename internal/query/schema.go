package query

import (
	"fmt"
	"slices"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// Derivation computes a field on read when the record does not store it.
//
// Compute returns false when its inputs are missing; the field is then absent.
type Derivation struct {
	Field   string
	Kind    record.Kind
	Compute func(record.Record) (record.Value, bool)
}

// Schema describes the fields of one entity list: the stored and derived
// field kinds, the default search fields and the default sort.
//
// A Schema is built once at startup and read-only afterwards; it is safe for
// concurrent use once built. The builder methods panic on conflicting
// declarations since those are programming errors.
type Schema struct {
	name         string
	kinds        map[string]record.Kind
	order        []string
	derivations  map[string]Derivation
	searchFields []string
	defaultSort  SortSpec
}

// NewSchema returns an empty schema named after the entity it describes.
func NewSchema(name string) *Schema {
	return &Schema{
		name:        name,
		kinds:       map[string]record.Kind{},
		derivations: map[string]Derivation{},
	}
}

// Name returns the entity name.
func (s *Schema) Name() string { return s.name }

// Field declares a stored field.
func (s *Schema) Field(name string, kind record.Kind) *Schema {
	s.declare(name, kind)

	return s
}

// Derive registers a derivation and declares its field.
func (s *Schema) Derive(d Derivation) *Schema {
	if d.Compute == nil {
		panic(fmt.Sprintf("query: schema %s: derivation %q has no Compute", s.name, d.Field))
	}

	s.declare(d.Field, d.Kind)
	s.derivations[d.Field] = d

	return s
}

// Search sets the default free-text search fields.
func (s *Schema) Search(fields ...string) *Schema {
	for _, f := range fields {
		if _, ok := s.kinds[f]; !ok {
			panic(fmt.Sprintf("query: schema %s: search field %q not declared", s.name, f))
		}
	}

	s.searchFields = slices.Clone(fields)

	return s
}

// SortDefault sets the sort used by [DefaultViewState].
func (s *Schema) SortDefault(spec SortSpec) *Schema {
	if _, ok := s.kinds[spec.Field]; !ok && spec.Field != "" {
		panic(fmt.Sprintf("query: schema %s: sort field %q not declared", s.name, spec.Field))
	}

	s.defaultSort = spec

	return s
}

func (s *Schema) declare(name string, kind record.Kind) {
	if name == "" || kind == record.KindInvalid {
		panic(fmt.Sprintf("query: schema %s: invalid field declaration %q (%s)", s.name, name, kind))
	}

	if prev, ok := s.kinds[name]; ok {
		if prev != kind {
			panic(fmt.Sprintf("query: schema %s: field %q declared as %s and %s", s.name, name, prev, kind))
		}

		return
	}

	s.kinds[name] = kind
	s.order = append(s.order, name)
}

// Kind returns the declared kind of a field.
func (s *Schema) Kind(field string) (record.Kind, bool) {
	k, ok := s.kinds[field]

	return k, ok
}

// Fields returns the declared field names in declaration order.
func (s *Schema) Fields() []string { return slices.Clone(s.order) }

// SearchFields returns the default search fields.
func (s *Schema) SearchFields() []string { return slices.Clone(s.searchFields) }

// DefaultSort returns the default sort.
func (s *Schema) DefaultSort() SortSpec { return s.defaultSort }

// Derived reports whether the field has a registered derivation.
func (s *Schema) Derived(field string) bool {
	_, ok := s.derivations[field]

	return ok
}

// Resolve returns the stored value of field, falling back to its derivation.
// Stored and derived values are indistinguishable to callers.
func (s *Schema) Resolve(rec record.Record, field string) (record.Value, bool) {
	if v, ok := rec.Get(field); ok {
		return v, true
	}

	d, ok := s.derivations[field]
	if !ok {
		return record.Value{}, false
	}

	v, ok := d.Compute(rec)
	if !ok || !v.Valid() {
		return record.Value{}, false
	}

	return v, true
}

// Product returns a derivation computing left*right from two numeric fields.
func Product(field, left, right string) Derivation {
	return Derivation{
		Field: field,
		Kind:  record.KindNumber,
		Compute: func(rec record.Record) (record.Value, bool) {
			l, ok := numberField(rec, left)
			if !ok {
				return record.Value{}, false
			}

			r, ok := numberField(rec, right)
			if !ok {
				return record.Value{}, false
			}

			return record.Number(l * r), true
		},
	}
}

// Severity is the risk rule severity = probability * impact.
func Severity() Derivation {
	return Product("severity", "probability", "impact")
}

func numberField(rec record.Record, name string) (float64, bool) {
	v, ok := rec.Get(name)
	if !ok {
		return 0, false
	}

	return v.Float()
}
