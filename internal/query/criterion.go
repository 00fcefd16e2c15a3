package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// Operator selects how a [FilterCriterion] tests a field.
type Operator string

// Supported operators.
const (
	OpEquals   Operator = "equals"
	OpContains Operator = "contains"
	OpInRange  Operator = "in-range"
	OpAll      Operator = "all"
)

var operatorAliases = map[string]Operator{
	"equals":   OpEquals,
	"eq":       OpEquals,
	"=":        OpEquals,
	"contains": OpContains,
	"~":        OpContains,
	"in-range": OpInRange,
	"range":    OpInRange,
	"all":      OpAll,
	"*":        OpAll,
}

// ParseOperator resolves an operator name or alias.
func ParseOperator(name string) (Operator, error) {
	op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, name)
	}

	return op, nil
}

// Range is a numeric interval. Bounds are inclusive unless HighOpen is set,
// which expresses half-open bands like [4,7). Use ±Inf for open ends.
type Range struct {
	Low      float64
	High     float64
	HighOpen bool
}

// Between returns the closed interval [low, high].
func Between(low, high float64) Range {
	return Range{Low: low, High: high}
}

// HalfOpen returns the interval [low, high).
func HalfOpen(low, high float64) Range {
	return Range{Low: low, High: high, HighOpen: true}
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	if math.IsNaN(v) || v < r.Low {
		return false
	}

	if r.HighOpen {
		return v < r.High
	}

	return v <= r.High
}

func (r Range) valid() bool {
	if math.IsNaN(r.Low) || math.IsNaN(r.High) {
		return false
	}

	return r.Low <= r.High
}

func (r Range) String() string {
	closing := "]"
	if r.HighOpen {
		closing = ")"
	}

	return "[" + formatBound(r.Low) + "," + formatBound(r.High) + closing
}

func formatBound(f float64) string {
	if math.IsInf(f, 0) {
		return ""
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseRange reads "[4,7)", "[4,7]", "4..7" or open-ended forms like "[,4)"
// and "[7,]". An empty bound is unbounded.
func ParseRange(text string) (Range, error) {
	s := strings.TrimSpace(text)

	if low, high, ok := strings.Cut(s, ".."); ok {
		return buildRange(text, low, high, false)
	}

	if len(s) < 3 || s[0] != '[' {
		return Range{}, fmt.Errorf("%w: range %q", ErrInvalidSyntax, text)
	}

	var highOpen bool

	switch s[len(s)-1] {
	case ']':
	case ')':
		highOpen = true
	default:
		return Range{}, fmt.Errorf("%w: range %q", ErrInvalidSyntax, text)
	}

	low, high, ok := strings.Cut(s[1:len(s)-1], ",")
	if !ok {
		return Range{}, fmt.Errorf("%w: range %q", ErrInvalidSyntax, text)
	}

	return buildRange(text, low, high, highOpen)
}

func buildRange(text, low, high string, highOpen bool) (Range, error) {
	r := Range{Low: math.Inf(-1), High: math.Inf(1), HighOpen: highOpen}

	if low = strings.TrimSpace(low); low != "" {
		f, err := strconv.ParseFloat(low, 64)
		if err != nil {
			return Range{}, fmt.Errorf("%w: range %q: low bound", ErrInvalidSyntax, text)
		}

		r.Low = f
	}

	if high = strings.TrimSpace(high); high != "" {
		f, err := strconv.ParseFloat(high, 64)
		if err != nil {
			return Range{}, fmt.Errorf("%w: range %q: high bound", ErrInvalidSyntax, text)
		}

		r.High = f
	}

	if !r.valid() {
		return Range{}, fmt.Errorf("%w: range %q: low > high", ErrInvalidOperand, text)
	}

	return r, nil
}

// FilterCriterion is a single filter. Value is the operand of equals and
// contains; Range is the operand of in-range. OpAll ignores both.
type FilterCriterion struct {
	Field    string
	Operator Operator
	Value    record.Value
	Range    Range
}

// Equals builds an equality criterion.
func Equals(field string, v record.Value) FilterCriterion {
	return FilterCriterion{Field: field, Operator: OpEquals, Value: v}
}

// Contains builds a case-insensitive substring criterion.
func Contains(field, substr string) FilterCriterion {
	return FilterCriterion{Field: field, Operator: OpContains, Value: record.String(substr)}
}

// InRange builds a numeric range criterion.
func InRange(field string, r Range) FilterCriterion {
	return FilterCriterion{Field: field, Operator: OpInRange, Range: r}
}

// All builds the pass-through criterion used for "nothing selected".
func All(field string) FilterCriterion {
	return FilterCriterion{Field: field, Operator: OpAll}
}

func (c FilterCriterion) String() string {
	switch c.Operator {
	case OpInRange:
		return c.Field + ":" + string(c.Operator) + ":" + c.Range.String()
	case OpAll:
		return c.Field + ":" + string(c.Operator)
	default:
		return c.Field + ":" + string(c.Operator) + ":" + c.Value.Text()
	}
}

// ParseCriterion reads "field:op:value" (value may contain ':'), or
// "field:all". Operands are kept as strings; [Compile] coerces them to the
// field's kind.
func ParseCriterion(text string) (FilterCriterion, error) {
	parts := strings.SplitN(text, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
		return FilterCriterion{}, fmt.Errorf("%w: filter %q (want field:op:value)", ErrInvalidSyntax, text)
	}

	field := strings.TrimSpace(parts[0])

	op, err := ParseOperator(parts[1])
	if err != nil {
		return FilterCriterion{}, err
	}

	if op == OpAll {
		return All(field), nil
	}

	if len(parts) < 3 {
		return FilterCriterion{}, fmt.Errorf("%w: filter %q: missing value", ErrInvalidSyntax, text)
	}

	operand := parts[2]

	switch op {
	case OpInRange:
		r, rangeErr := ParseRange(operand)
		if rangeErr != nil {
			return FilterCriterion{}, rangeErr
		}

		return InRange(field, r), nil
	case OpContains:
		return Contains(field, operand), nil
	default:
		return Equals(field, record.String(operand)), nil
	}
}

// Direction is the sort order of a [SortSpec]. The zero value is ascending.
type Direction string

// Sort directions.
const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortSpec is the single active ordering of a view. An empty Field keeps
// source order.
type SortSpec struct {
	Field     string
	Direction Direction
}

// SortBy builds a sort spec.
func SortBy(field string, dir Direction) SortSpec {
	return SortSpec{Field: field, Direction: dir}
}

// Descending reports whether the spec orders high to low.
func (s SortSpec) Descending() bool {
	return s.Direction == Descending
}

func (s SortSpec) String() string {
	if s.Field == "" {
		return ""
	}

	if s.Descending() {
		return s.Field + ":" + string(Descending)
	}

	return s.Field + ":" + string(Ascending)
}

// ParseSort reads "field", "field:asc" or "field:desc".
func ParseSort(text string) (SortSpec, error) {
	field, dir, hasDir := strings.Cut(strings.TrimSpace(text), ":")
	field = strings.TrimSpace(field)

	if field == "" {
		return SortSpec{}, fmt.Errorf("%w: sort %q", ErrInvalidSyntax, text)
	}

	if !hasDir {
		return SortBy(field, Ascending), nil
	}

	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "asc", "ascending":
		return SortBy(field, Ascending), nil
	case "desc", "descending":
		return SortBy(field, Descending), nil
	default:
		return SortSpec{}, fmt.Errorf("%w: direction %q", ErrInvalidSort, dir)
	}
}
