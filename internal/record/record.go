// Package record defines the generic list item consumed by the query pipeline.
//
// A [Record] is an opaque ID plus an open set of typed fields. Entity packages
// convert their canonical structs into records once, at the API boundary, so the
// pipeline never deals with payload casing or optional-field quirks.
package record

import (
	"maps"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the type tag of a [Value].
type Kind uint8

// Value kinds.
const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindEnum
	KindDate
)

// DateLayout is the text form of date values.
const DateLayout = "2006-01-02"

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindString:  "string",
	KindNumber:  "number",
	KindBool:    "bool",
	KindEnum:    "enum",
	KindDate:    "date",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Textual reports whether values of this kind compare by text.
func (k Kind) Textual() bool {
	return k == KindString || k == KindEnum
}

// ParseKind maps a kind name back to its [Kind]. Unknown names return KindInvalid.
func ParseKind(name string) Kind {
	for k, n := range kindNames {
		if n == name && k != int(KindInvalid) {
			return Kind(k)
		}
	}

	return KindInvalid
}

// Value is a tagged field value. The zero Value is invalid and never stored.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	t    time.Time
}

// String returns a free-text value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Enum returns a value drawn from a closed set (status, type, category).
func Enum(s string) Value { return Value{kind: KindEnum, str: s} }

// NormalizeEnum folds "In Progress", "in-progress" and "IN_PROGRESS" to
// "in_progress".
func NormalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Date returns a date value normalized to UTC.
func Date(t time.Time) Value { return Value{kind: KindDate, t: t.UTC()} }

// Kind returns the value's type tag.
func (v Value) Kind() Kind { return v.kind }

// Valid reports whether v holds a value.
func (v Value) Valid() bool { return v.kind != KindInvalid }

// Float returns the numeric view of a number value.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}

	return v.num, true
}

// Str returns the text of a string or enum value.
func (v Value) Str() (string, bool) {
	if !v.kind.Textual() {
		return "", false
	}

	return v.str, true
}

// BoolValue returns the payload of a bool value.
func (v Value) BoolValue() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}

	return v.b, true
}

// Time returns the payload of a date value.
func (v Value) Time() (time.Time, bool) {
	if v.kind != KindDate {
		return time.Time{}, false
	}

	return v.t, true
}

// Text is the stringified form used for substring matching and display.
func (v Value) Text() string {
	switch v.kind {
	case KindString, KindEnum:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDate:
		return v.t.Format(DateLayout)
	default:
		return ""
	}
}

// Equal reports strict equality. Strings and enums are interchangeable and
// compare by exact text; numbers compare numerically.
func (v Value) Equal(other Value) bool {
	switch {
	case v.kind.Textual() && other.kind.Textual():
		return v.str == other.str
	case v.kind != other.kind:
		return false
	}

	switch v.kind {
	case KindNumber:
		return v.num == other.num
	case KindBool:
		return v.b == other.b
	case KindDate:
		return v.t.Equal(other.t)
	default:
		return false
	}
}

// Parse converts text into a value of the given kind.
func Parse(kind Kind, text string) (Value, bool) {
	switch kind {
	case KindString:
		return String(text), true
	case KindEnum:
		return Enum(text), true
	case KindNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil || math.IsNaN(f) {
			return Value{}, false
		}

		return Number(f), true
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return Value{}, false
		}

		return Bool(b), true
	case KindDate:
		t, err := time.Parse(DateLayout, strings.TrimSpace(text))
		if err != nil {
			t, err = time.Parse(time.RFC3339, strings.TrimSpace(text))
			if err != nil {
				return Value{}, false
			}
		}

		return Date(t), true
	default:
		return Value{}, false
	}
}

// Record is one item of a list view.
type Record struct {
	ID     string
	Fields map[string]Value
}

// New returns a record with an empty field map.
func New(id string) Record {
	return Record{ID: id, Fields: map[string]Value{}}
}

// Get returns a stored field. Invalid values count as absent.
func (r Record) Get(name string) (Value, bool) {
	v, ok := r.Fields[name]
	if !ok || !v.Valid() {
		return Value{}, false
	}

	return v, true
}

// Set stores a field, allocating the map on first use. Invalid values are ignored.
func (r *Record) Set(name string, v Value) {
	if !v.Valid() {
		return
	}

	if r.Fields == nil {
		r.Fields = map[string]Value{}
	}

	r.Fields[name] = v
}

// Clone returns a copy whose field map can be mutated independently.
func (r Record) Clone() Record {
	return Record{ID: r.ID, Fields: maps.Clone(r.Fields)}
}

// Malformed reports whether the record lacks its required ID.
func (r Record) Malformed() bool {
	return strings.TrimSpace(r.ID) == ""
}
