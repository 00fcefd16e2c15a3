package query

import (
	"fmt"
	"strings"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// Predicate decides whether a record belongs to a view.
type Predicate func(record.Record) bool

// Matches evaluates one criterion against one record. A field the record
// lacks (stored or derived) is a non-match, never an error. OpAll matches
// everything.
func Matches(schema *Schema, rec record.Record, c FilterCriterion) bool {
	if c.Operator == OpAll {
		return true
	}

	v, ok := schema.Resolve(rec, c.Field)
	if !ok {
		return false
	}

	switch c.Operator {
	case OpEquals:
		return equalsOperand(v, c.Value)
	case OpContains:
		return containsFold(v.Text(), c.Value.Text())
	case OpInRange:
		f, isNum := v.Float()

		return isNum && c.Range.Contains(f)
	default:
		return false
	}
}

func equalsOperand(v, operand record.Value) bool {
	if !operand.Valid() {
		return false
	}

	if v.Kind() == operand.Kind() || (v.Kind().Textual() && operand.Kind().Textual()) {
		return v.Equal(operand)
	}

	// Operands typed as text on the command line are coerced to the field's kind.
	coerced, ok := record.Parse(v.Kind(), operand.Text())

	return ok && v.Equal(coerced)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Compose validates criteria and search fields against the schema and returns
// one predicate combining them with AND: every criterion must match, and if
// the trimmed searchQuery is non-empty at least one search field must contain
// it case-insensitively. An empty searchFields uses the schema defaults.
func Compose(schema *Schema, criteria []FilterCriterion, searchQuery string, searchFields []string) (Predicate, error) {
	compiled := make([]FilterCriterion, 0, len(criteria))

	for _, c := range criteria {
		cc, err := compileCriterion(schema, c)
		if err != nil {
			return nil, err
		}

		// Pass-through criteria never exclude anything.
		if cc.Operator == OpAll {
			continue
		}

		compiled = append(compiled, cc)
	}

	if len(searchFields) == 0 {
		searchFields = schema.SearchFields()
	}

	for _, f := range searchFields {
		if _, ok := schema.Kind(f); !ok {
			return nil, fieldErr(schema.Name(), f, fmt.Errorf("%w: search field", ErrUnknownField))
		}
	}

	query := strings.ToLower(strings.TrimSpace(searchQuery))

	return func(rec record.Record) bool {
		for _, c := range compiled {
			if !Matches(schema, rec, c) {
				return false
			}
		}

		if query == "" {
			return true
		}

		for _, f := range searchFields {
			v, ok := schema.Resolve(rec, f)
			if ok && strings.Contains(strings.ToLower(v.Text()), query) {
				return true
			}
		}

		return false
	}, nil
}

// compileCriterion checks a criterion against the schema and coerces its
// operand to the field's kind.
func compileCriterion(schema *Schema, c FilterCriterion) (FilterCriterion, error) {
	kind, ok := schema.Kind(c.Field)
	if !ok {
		return FilterCriterion{}, fieldErr(schema.Name(), c.Field, ErrUnknownField)
	}

	switch c.Operator {
	case OpAll:
		return c, nil
	case OpContains:
		if !c.Value.Valid() {
			return FilterCriterion{}, fieldErr(schema.Name(), c.Field, fmt.Errorf("%w: contains needs a value", ErrInvalidOperand))
		}

		c.Value = record.String(c.Value.Text())

		return c, nil
	case OpEquals:
		if !c.Value.Valid() {
			return FilterCriterion{}, fieldErr(schema.Name(), c.Field, fmt.Errorf("%w: equals needs a value", ErrInvalidOperand))
		}

		if kind == record.KindEnum && c.Value.Kind().Textual() {
			c.Value = record.Enum(record.NormalizeEnum(c.Value.Text()))

			return c, nil
		}

		if c.Value.Kind() == kind || (kind.Textual() && c.Value.Kind().Textual()) {
			return c, nil
		}

		coerced, parsed := record.Parse(kind, c.Value.Text())
		if !parsed {
			return FilterCriterion{}, fieldErr(schema.Name(), c.Field,
				fmt.Errorf("%w: %q is not a %s", ErrInvalidOperand, c.Value.Text(), kind))
		}

		c.Value = coerced

		return c, nil
	case OpInRange:
		if kind != record.KindNumber {
			return FilterCriterion{}, fieldErr(schema.Name(), c.Field,
				fmt.Errorf("%w: in-range on %s field", ErrInvalidOperand, kind))
		}

		if !c.Range.valid() {
			return FilterCriterion{}, fieldErr(schema.Name(), c.Field,
				fmt.Errorf("%w: range %s", ErrInvalidOperand, c.Range))
		}

		return c, nil
	default:
		return FilterCriterion{}, fieldErr(schema.Name(), c.Field,
			fmt.Errorf("%w: %q", ErrUnknownOperator, c.Operator))
	}
}
