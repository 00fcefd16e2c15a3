package query_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/query"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// Contract: free-text search matches the designated fields case-insensitively.
func Test_ComputeView_Returns_Matching_Record_When_Searching_Name(t *testing.T) {
	t.Parallel()

	records := []record.Record{
		rec("1", fields{"name": record.String("Team Sync")}),
		rec("2", fields{"name": record.String("Budget Review")}),
	}

	view := mustView(t, riskSchema(), records, query.ViewState{SearchQuery: "team"})

	if diff := cmp.Diff([]string{"1"}, ids(view)); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

// Contract: half-open range [4,7) admits 5 but neither 2 nor 8.
func Test_ComputeView_Keeps_Only_Middle_Band_When_Filtering_Severity_Range(t *testing.T) {
	t.Parallel()

	records := []record.Record{sev("a", 2), sev("b", 5), sev("c", 8)}

	state := query.ViewState{
		Filters: []query.FilterCriterion{query.InRange("severity", query.HalfOpen(4, 7))},
	}

	view := mustView(t, riskSchema(), records, state)

	if diff := cmp.Diff([]string{"b"}, ids(view)); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

// Contract: descending sort keeps equal keys in input order (stable).
func Test_ComputeView_Preserves_Tie_Order_When_Sorting_Descending(t *testing.T) {
	t.Parallel()

	records := []record.Record{sev("1", 5), sev("2", 8), sev("3", 5)}

	state := query.ViewState{Sort: query.SortBy("severity", query.Descending)}

	view := mustView(t, riskSchema(), records, state)

	if diff := cmp.Diff([]string{"2", "1", "3"}, ids(view)); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

// Contract: ascending ties also keep input order, for many duplicates.
func Test_ComputeView_Is_Stable_When_Many_Keys_Tie(t *testing.T) {
	t.Parallel()

	var records []record.Record

	want := []string{}

	for i := range 40 {
		id := string(rune('A' + i%26))
		if i >= 26 {
			id += "2"
		}

		records = append(records, sev(id, float64(i%3)))
	}

	for key := range 3 {
		for i, r := range records {
			if i%3 == key {
				want = append(want, r.ID)
			}
		}
	}

	view := mustView(t, riskSchema(), records, query.ViewState{Sort: query.SortBy("severity", query.Ascending)})

	if diff := cmp.Diff(want, ids(view)); diff != "" {
		t.Fatalf("stable order mismatch (-want +got):\n%s", diff)
	}
}

// Contract: a derived severity behaves exactly like a stored one.
func Test_ComputeView_Treats_Derived_And_Stored_Severity_Alike_When_Filtering_And_Sorting(t *testing.T) {
	t.Parallel()

	derived := rec("derived", fields{"probability": record.Number(0.8), "impact": record.Number(9)})
	stored := sev("stored", 7.2)
	low := sev("low", 3)

	schema := riskSchema()

	for _, state := range []query.ViewState{
		{Filters: []query.FilterCriterion{query.InRange("severity", query.Between(7.2, 7.2))}},
		{Filters: []query.FilterCriterion{query.Equals("severity", record.Number(7.2))}},
		{Sort: query.SortBy("severity", query.Descending)},
	} {
		a := mustView(t, schema, []record.Record{derived, low}, state)
		b := mustView(t, schema, []record.Record{stored, low}, state)

		if len(a) != len(b) {
			t.Fatalf("state %s: derived len %d, stored len %d", state.Key(), len(a), len(b))
		}

		for i := range a {
			if (a[i].ID == "low") != (b[i].ID == "low") {
				t.Fatalf("state %s: position %d differs: %v vs %v", state.Key(), i, ids(a), ids(b))
			}
		}
	}
}

// Contract: identical inputs produce identical, identically ordered output and the input is untouched.
func Test_ComputeView_Is_Idempotent_And_Pure_When_Called_Twice(t *testing.T) {
	t.Parallel()

	records := []record.Record{
		rec("1", fields{"name": record.String("b"), "severity": record.Number(3)}),
		rec("2", fields{"name": record.String("a"), "severity": record.Number(9)}),
		rec("3", fields{"name": record.String("c")}),
	}
	before := ids(records)

	state := query.ViewState{Sort: query.SortBy("name", query.Ascending)}

	first := mustView(t, riskSchema(), records, state)
	second := mustView(t, riskSchema(), records, state)

	if diff := cmp.Diff(ids(first), ids(second)); diff != "" {
		t.Fatalf("second call differs (-first +second):\n%s", diff)
	}

	if diff := cmp.Diff(before, ids(records)); diff != "" {
		t.Fatalf("input mutated (-before +after):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"2", "1", "3"}, ids(first)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

// Contract: adding a non-all criterion never grows the result set.
func Test_ComputeView_Never_Grows_When_Adding_Filters(t *testing.T) {
	t.Parallel()

	records := []record.Record{
		rec("1", fields{"name": record.String("Vendor delay"), "status": record.Enum("open"), "severity": record.Number(8)}),
		rec("2", fields{"name": record.String("Scope creep"), "status": record.Enum("open"), "severity": record.Number(5)}),
		rec("3", fields{"name": record.String("Vendor lock-in"), "status": record.Enum("closed"), "severity": record.Number(2)}),
		rec("4", fields{"name": record.String("Key person"), "severity": record.Number(9)}),
	}

	criteria := []query.FilterCriterion{
		query.Contains("name", "e"),
		query.Equals("status", record.Enum("open")),
		query.InRange("severity", query.Between(6, 10)),
		query.Contains("name", "vendor"),
	}

	prev := len(records)

	for i := range criteria {
		view := mustView(t, riskSchema(), records, query.ViewState{Filters: criteria[:i+1]})
		if len(view) > prev {
			t.Fatalf("after %d criteria got %d records, previously %d", i+1, len(view), prev)
		}

		prev = len(view)
	}

	if prev != 1 {
		t.Fatalf("final count = %d, want 1", prev)
	}
}

// Contract: OpAll never excludes, and an empty criteria list is a no-op.
func Test_ComputeView_Passes_Everything_When_Criteria_Are_All_Or_Empty(t *testing.T) {
	t.Parallel()

	records := []record.Record{sev("1", 1), rec("2", fields{"name": record.String("x")})}

	for _, state := range []query.ViewState{
		{},
		{Filters: []query.FilterCriterion{query.All("status"), query.All("severity")}},
	} {
		view := mustView(t, riskSchema(), records, state)
		if diff := cmp.Diff([]string{"1", "2"}, ids(view)); diff != "" {
			t.Fatalf("state %s mismatch (-want +got):\n%s", state.Key(), diff)
		}
	}
}

// Contract: adjacent output pairs satisfy comparator(a,b) <= 0.
func Test_ComputeView_Output_Is_Ordered_When_Checked_With_Comparator(t *testing.T) {
	t.Parallel()

	schema := riskSchema()
	records := []record.Record{
		sev("1", 4), sev("2", -1), rec("3", fields{}), sev("4", 10), sev("5", 4), sev("6", math.Inf(1)),
	}

	for _, dir := range []query.Direction{query.Ascending, query.Descending} {
		spec := query.SortBy("severity", dir)

		view := mustView(t, schema, records, query.ViewState{Sort: spec})

		compare, err := query.BuildComparator(schema, spec, query.Options{}.Locale)
		if err != nil {
			t.Fatalf("build comparator: %v", err)
		}

		for i := 1; i < len(view); i++ {
			if c := compare(view[i-1], view[i]); c > 0 {
				t.Fatalf("%s: comparator(%s,%s) = %d, want <= 0", dir, view[i-1].ID, view[i].ID, c)
			}
		}

		if view[len(view)-1].ID != "3" {
			t.Fatalf("%s: record without key should be last, got %v", dir, ids(view))
		}
	}
}

// Contract: string sort collates by locale, so case does not split the alphabet.
func Test_ComputeView_Collates_Strings_When_Sorting_By_Name(t *testing.T) {
	t.Parallel()

	records := []record.Record{
		rec("1", fields{"name": record.String("beta")}),
		rec("2", fields{"name": record.String("Alpha")}),
		rec("3", fields{"name": record.String("Échéance")}),
		rec("4", fields{"name": record.String("zeta")}),
	}

	view := mustView(t, riskSchema(), records, query.ViewState{Sort: query.SortBy("name", query.Ascending)})

	if diff := cmp.Diff([]string{"2", "1", "3", "4"}, ids(view)); diff != "" {
		t.Fatalf("collation mismatch (-want +got):\n%s", diff)
	}
}

// Contract: configuration mistakes fail at compile time with classified errors.
func Test_Compile_Fails_Fast_When_State_References_Unknown_Things(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		state query.ViewState
		want  error
	}{
		{
			name:  "unknown_filter_field",
			state: query.ViewState{Filters: []query.FilterCriterion{query.All("nope")}},
			want:  query.ErrUnknownField,
		},
		{
			name:  "unknown_operator",
			state: query.ViewState{Filters: []query.FilterCriterion{{Field: "name", Operator: "like"}}},
			want:  query.ErrUnknownOperator,
		},
		{
			name:  "unknown_sort_field",
			state: query.ViewState{Sort: query.SortBy("deadline", query.Ascending)},
			want:  query.ErrUnknownField,
		},
		{
			name:  "bad_direction",
			state: query.ViewState{Sort: query.SortSpec{Field: "name", Direction: "sideways"}},
			want:  query.ErrInvalidSort,
		},
		{
			name:  "range_on_text",
			state: query.ViewState{Filters: []query.FilterCriterion{query.InRange("name", query.Between(1, 2))}},
			want:  query.ErrInvalidOperand,
		},
		{
			name:  "equals_not_a_number",
			state: query.ViewState{Filters: []query.FilterCriterion{query.Equals("impact", record.String("huge"))}},
			want:  query.ErrInvalidOperand,
		},
		{
			name:  "unknown_search_field",
			state: query.ViewState{SearchQuery: "x", SearchFields: []string{"body"}},
			want:  query.ErrUnknownField,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := query.Compile(riskSchema(), tc.state, query.Options{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}

			var fieldErr *query.FieldError
			if !errors.As(err, &fieldErr) || fieldErr.Schema != "risks" {
				t.Fatalf("err = %v, want *FieldError for risks", err)
			}
		})
	}
}

func Test_MustCompile_Panics_When_State_Is_Invalid(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()

	query.MustCompile(riskSchema(), query.ViewState{Sort: query.SortBy("missing", query.Ascending)}, query.Options{})
}

// Contract: malformed records are skipped and logged without aborting the batch.
func Test_Apply_Skips_And_Logs_When_Record_Has_No_ID(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)

	plan, err := query.Compile(riskSchema(), query.ViewState{}, query.Options{Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	res := plan.Apply([]record.Record{sev("1", 1), sev("", 2), sev("  ", 3), sev("4", 4)})

	if diff := cmp.Diff([]string{"1", "4"}, ids(res.Records)); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	if len(res.Skipped) != 2 || res.Skipped[0].Index != 1 || res.Skipped[1].Index != 2 {
		t.Fatalf("skipped = %+v, want indexes 1 and 2", res.Skipped)
	}

	if !errors.Is(res.Skipped[0].Err, query.ErrMalformedRecord) {
		t.Fatalf("skip err = %v", res.Skipped[0].Err)
	}

	if res.Total != 4 {
		t.Fatalf("total = %d, want 4", res.Total)
	}

	entries := logs.FilterMessage("skipping record").All()
	if len(entries) != 2 {
		t.Fatalf("log entries = %d, want 2", len(entries))
	}

	if got := entries[0].ContextMap()["schema"]; got != "risks" {
		t.Fatalf("schema field = %v, want risks", got)
	}
}

// Contract: an empty result is a valid, non-nil view.
func Test_ComputeView_Returns_Empty_Slice_When_Nothing_Matches(t *testing.T) {
	t.Parallel()

	view := mustView(t, riskSchema(), []record.Record{sev("1", 1)}, query.ViewState{SearchQuery: "zzz"})

	if view == nil || len(view) != 0 {
		t.Fatalf("view = %#v, want empty non-nil slice", view)
	}
}

func Test_DefaultViewState_Uses_Schema_Sort(t *testing.T) {
	t.Parallel()

	state := query.DefaultViewState(riskSchema())

	if state.Sort != query.SortBy("severity", query.Descending) || state.SearchQuery != "" || len(state.Filters) != 0 {
		t.Fatalf("default state = %+v", state)
	}
}
