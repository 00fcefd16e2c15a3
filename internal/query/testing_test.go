package query_test

import (
	"testing"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/query"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// riskSchema mirrors the risk list: text title, enum status, numeric
// probability/impact and a severity that may be stored or derived.
func riskSchema() *query.Schema {
	return query.NewSchema("risks").
		Field("name", record.KindString).
		Field("status", record.KindEnum).
		Field("probability", record.KindNumber).
		Field("impact", record.KindNumber).
		Field("flagged", record.KindBool).
		Derive(query.Severity()).
		Search("name").
		SortDefault(query.SortBy("severity", query.Descending))
}

type fields map[string]record.Value

func rec(id string, f fields) record.Record {
	r := record.New(id)
	for k, v := range f {
		r.Set(k, v)
	}

	return r
}

func sev(id string, severity float64) record.Record {
	return rec(id, fields{"severity": record.Number(severity)})
}

func ids(records []record.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}

	return out
}

func mustView(t *testing.T, schema *query.Schema, records []record.Record, state query.ViewState) []record.Record {
	t.Helper()

	view, err := query.ComputeView(schema, records, state)
	if err != nil {
		t.Fatalf("compute view: %v", err)
	}

	return view
}
