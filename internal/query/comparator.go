package query

import (
	"cmp"
	"fmt"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// Comparator orders two records. It returns a negative number when a sorts
// before b, zero when they tie and a positive number otherwise.
//
// A Comparator owns a collator and is not safe for concurrent use.
type Comparator func(a, b record.Record) int

// BuildComparator returns the comparator for one sort spec.
//
// Text fields collate by locale, numbers (stored or derived) compare
// numerically, false sorts before true and dates compare chronologically.
// Descending negates the ascending result. Records missing the key sort after
// every record that has it, in both directions. An empty Field yields a
// comparator that reports every pair as tied.
func BuildComparator(schema *Schema, spec SortSpec, locale language.Tag) (Comparator, error) {
	if err := validateSort(schema, spec); err != nil {
		return nil, err
	}

	if spec.Field == "" {
		return func(record.Record, record.Record) int { return 0 }, nil
	}

	collator := collate.New(locale)
	desc := spec.Descending()
	field := spec.Field

	return func(a, b record.Record) int {
		av, aok := schema.Resolve(a, field)
		bv, bok := schema.Resolve(b, field)

		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}

		c := compareValues(collator, av, bv)
		if desc {
			return -c
		}

		return c
	}, nil
}

func validateSort(schema *Schema, spec SortSpec) error {
	switch spec.Direction {
	case "", Ascending, Descending:
	default:
		return fieldErr(schema.Name(), spec.Field, fmt.Errorf("%w: direction %q", ErrInvalidSort, spec.Direction))
	}

	if spec.Field == "" {
		return nil
	}

	if _, ok := schema.Kind(spec.Field); !ok {
		return fieldErr(schema.Name(), spec.Field, fmt.Errorf("%w: sort field", ErrUnknownField))
	}

	return nil
}

// kindRank orders values whose kinds disagree (a payload that stored text in
// a numeric field) so the comparator stays a total preorder.
func kindRank(k record.Kind) int {
	switch k {
	case record.KindNumber:
		return 0
	case record.KindDate:
		return 1
	case record.KindBool:
		return 2
	default:
		return 3
	}
}

func compareValues(collator *collate.Collator, a, b record.Value) int {
	if a.Kind().Textual() && b.Kind().Textual() {
		as, _ := a.Str()
		bs, _ := b.Str()

		return collator.CompareString(as, bs)
	}

	if a.Kind() != b.Kind() {
		return cmp.Compare(kindRank(a.Kind()), kindRank(b.Kind()))
	}

	switch a.Kind() {
	case record.KindNumber:
		af, _ := a.Float()
		bf, _ := b.Float()

		return cmp.Compare(af, bf)
	case record.KindBool:
		ab, _ := a.BoolValue()
		bb, _ := b.BoolValue()

		return cmp.Compare(boolRank(ab), boolRank(bb))
	case record.KindDate:
		at, _ := a.Time()
		bt, _ := b.Time()

		return at.Compare(bt)
	default:
		return 0
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}

	return 0
}
