package record_test

import (
	"testing"
	"time"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// Contract: Text is the stringified form used by contains/search, so it must be stable per kind.
func Test_Value_Text_Is_Stable_When_Formatting_Each_Kind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		value record.Value
		want  string
	}{
		{name: "string", value: record.String("Team Sync"), want: "Team Sync"},
		{name: "enum", value: record.Enum("open"), want: "open"},
		{name: "integer_number", value: record.Number(8), want: "8"},
		{name: "fraction", value: record.Number(7.2), want: "7.2"},
		{name: "bool", value: record.Bool(true), want: "true"},
		{name: "date", value: record.Date(time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)), want: "2026-03-04"},
		{name: "invalid", value: record.Value{}, want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tc.value.Text(); got != tc.want {
				t.Fatalf("Text() = %q, want %q", got, tc.want)
			}
		})
	}
}

// Contract: string and enum values are interchangeable for equality; other kinds never cross-match.
func Test_Value_Equal_Matches_Text_Kinds_When_String_And_Enum_Mix(t *testing.T) {
	t.Parallel()

	if !record.String("open").Equal(record.Enum("open")) {
		t.Fatal("string/enum with same text should be equal")
	}

	if record.String("Open").Equal(record.Enum("open")) {
		t.Fatal("equality must be case-sensitive")
	}

	if record.Number(1).Equal(record.String("1")) {
		t.Fatal("number must not equal string")
	}

	if !record.Number(7.2).Equal(record.Number(0.8 * 9)) {
		t.Fatal("7.2 should equal 0.8*9 in float64")
	}
}

// Contract: invalid values behave as absent fields so optional payload fields never leak zero values.
func Test_Record_Get_Reports_Absent_When_Field_Missing_Or_Invalid(t *testing.T) {
	t.Parallel()

	rec := record.New("r1")
	rec.Set("title", record.String("Alpha"))
	rec.Set("deadline", record.Value{})

	if _, ok := rec.Get("deadline"); ok {
		t.Fatal("invalid value must not be stored")
	}

	if _, ok := rec.Get("missing"); ok {
		t.Fatal("missing field reported present")
	}

	got, ok := rec.Get("title")
	if !ok || got.Text() != "Alpha" {
		t.Fatalf("title = %q (%v), want Alpha", got.Text(), ok)
	}

	clone := rec.Clone()
	clone.Set("title", record.String("Beta"))

	if v, _ := rec.Get("title"); v.Text() != "Alpha" {
		t.Fatalf("clone mutated original: %q", v.Text())
	}
}

func Test_Parse_Rejects_Garbage_When_Kind_Is_Numeric_Or_Date(t *testing.T) {
	t.Parallel()

	if _, ok := record.Parse(record.KindNumber, "abc"); ok {
		t.Fatal("expected number parse failure")
	}

	if _, ok := record.Parse(record.KindDate, "tomorrow"); ok {
		t.Fatal("expected date parse failure")
	}

	v, ok := record.Parse(record.KindDate, "2026-01-02")
	if !ok || v.Text() != "2026-01-02" {
		t.Fatalf("date parse = %q (%v)", v.Text(), ok)
	}

	if record.ParseKind("enum") != record.KindEnum || record.ParseKind("nope") != record.KindInvalid {
		t.Fatal("ParseKind mismatch")
	}
}
