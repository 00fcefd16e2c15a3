package query

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// UnknownBucket collects records whose bucket field is absent.
const UnknownBucket = "Unknown"

// BucketFunc maps a record to the label it is counted under.
type BucketFunc func(record.Record) string

// Summarize tallies records per bucket in a single pass. It works on the raw
// record set and is independent of any ViewState.
func Summarize(records []record.Record, bucket BucketFunc) map[string]int {
	counts := make(map[string]int)

	for _, rec := range records {
		counts[bucket(rec)]++
	}

	return counts
}

// FieldBucket buckets records by the text of a field.
func FieldBucket(schema *Schema, field string) BucketFunc {
	return func(rec record.Record) string {
		v, ok := schema.Resolve(rec, field)
		if !ok || v.Text() == "" {
			return UnknownBucket
		}

		return v.Text()
	}
}

// Band is one labelled threshold: values >= Min fall into it unless a higher
// band claims them.
type Band struct {
	Label string
	Min   float64
}

// Bands are thresholds ordered from highest Min to lowest. The last band
// catches everything below the previous one.
type Bands []Band

var errInvalidBands = errors.New("invalid bands")

// NewBands validates and orders bands. The lowest band's Min is widened to
// -Inf so every number lands somewhere.
func NewBands(bands ...Band) (Bands, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: no bands", errInvalidBands)
	}

	out := slices.Clone(bands)
	slices.SortStableFunc(out, func(a, b Band) int { return cmp.Compare(b.Min, a.Min) })

	seen := map[string]bool{}

	for i, b := range out {
		if b.Label == "" || math.IsNaN(b.Min) {
			return nil, fmt.Errorf("%w: band %d", errInvalidBands, i)
		}

		if seen[b.Label] {
			return nil, fmt.Errorf("%w: duplicate label %q", errInvalidBands, b.Label)
		}

		seen[b.Label] = true

		if i > 0 && out[i-1].Min == b.Min {
			return nil, fmt.Errorf("%w: %q and %q share threshold %v", errInvalidBands, out[i-1].Label, b.Label, b.Min)
		}
	}

	out[len(out)-1].Min = math.Inf(-1)

	return out, nil
}

// SeverityBands returns High >= high, Medium in [medium, high), Low below.
func SeverityBands(high, medium float64) (Bands, error) {
	if medium >= high {
		return nil, fmt.Errorf("%w: medium threshold %v must be below high %v", errInvalidBands, medium, high)
	}

	return NewBands(
		Band{Label: "High", Min: high},
		Band{Label: "Medium", Min: medium},
		Band{Label: "Low", Min: math.Inf(-1)},
	)
}

// DefaultSeverityBands are High >= 7, Medium [4,7), Low < 4.
func DefaultSeverityBands() Bands {
	bands, err := SeverityBands(7, 4)
	if err != nil {
		panic(err)
	}

	return bands
}

// Label returns the band containing v.
func (b Bands) Label(v float64) string {
	for _, band := range b {
		if v >= band.Min {
			return band.Label
		}
	}

	return UnknownBucket
}

// Labels returns the band labels from highest to lowest.
func (b Bands) Labels() []string {
	labels := make([]string, len(b))
	for i, band := range b {
		labels[i] = band.Label
	}

	return labels
}

// Range returns the numeric interval covered by the named band.
func (b Bands) Range(label string) (Range, bool) {
	for i, band := range b {
		if band.Label != label {
			continue
		}

		high := math.Inf(1)
		if i > 0 {
			high = b[i-1].Min
		}

		return HalfOpen(band.Min, high), true
	}

	return Range{}, false
}

// BandBucket buckets a numeric field (stored or derived) by bands.
func BandBucket(schema *Schema, field string, bands Bands) BucketFunc {
	return func(rec record.Record) string {
		v, ok := schema.Resolve(rec, field)
		if !ok {
			return UnknownBucket
		}

		f, ok := v.Float()
		if !ok {
			return UnknownBucket
		}

		return bands.Label(f)
	}
}

// Count is one bucket of a summary.
type Count struct {
	Key string
	N   int
}

// Ordered returns counts with the keys of order first (including zero
// counts), followed by any remaining keys sorted alphabetically.
func Ordered(counts map[string]int, order []string) []Count {
	out := make([]Count, 0, len(counts)+len(order))
	listed := make(map[string]bool, len(order))

	for _, k := range order {
		if listed[k] {
			continue
		}

		listed[k] = true
		out = append(out, Count{Key: k, N: counts[k]})
	}

	rest := make([]string, 0, len(counts))

	for k := range counts {
		if !listed[k] {
			rest = append(rest, k)
		}
	}

	slices.Sort(rest)

	for _, k := range rest {
		out = append(out, Count{Key: k, N: counts[k]})
	}

	return out
}
