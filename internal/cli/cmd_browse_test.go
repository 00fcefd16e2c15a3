package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/config"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/entity"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/query"
)

func newTestBrowser(t *testing.T, path string, out *strings.Builder) *browser {
	t.Helper()

	a := &app{cfg: config.Default(), catalog: entity.NewCatalog(entity.DefaultRules()), logger: zap.NewNop(), now: time.Now}

	e, err := a.catalog.Get(entity.Risks)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	state := query.DefaultViewState(e.Schema)

	return &browser{
		o:        NewIO(nil, out, out),
		entity:   e,
		src:      a.source(nil, path),
		memo:     query.NewMemo(query.New(e.Schema, a.pipelineOptions())),
		initial:  state,
		state:    state,
		pageSize: 1,
	}
}

// Contract: reload starts again from the first page, so a list that shrank
// while the user was on a later page still shows.
func Test_Browse_Reload_Returns_To_First_Page_When_List_Shrinks(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	path := c.WriteFile("risks.json", risksJSON)

	var out strings.Builder

	b := newTestBrowser(t, path, &out)
	ctx := context.Background()

	if err := b.load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := b.exec(ctx, "page 3"); err != nil {
		t.Fatalf("page 3: %v", err)
	}

	c.WriteFile("risks.json", `[{"id": "r1", "title": "Vendor delay", "severity": 7}]`)
	out.Reset()

	if err := b.exec(ctx, "reload"); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if b.page != 0 {
		t.Fatalf("page = %d, want 0", b.page)
	}

	AssertContains(t, out.String(), "page 1/1 (1 matching, 1 total)")

	if err := b.exec(ctx, "show"); err != nil {
		t.Fatalf("show after reload: %v", err)
	}
}

// Contract: summary counts every loaded record regardless of the search and
// filters, and leaves out records without an id.
func Test_Browse_Summary_Ignores_View_State(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	path := c.WriteFile("risks.json", `[
  {"id": "r1", "status": "open", "severity": 8},
  {"id": "r2", "status": "closed", "severity": 5},
  {"status": "open", "severity": 9}
]`)

	var out strings.Builder

	b := newTestBrowser(t, path, &out)
	ctx := context.Background()

	if err := b.load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := b.exec(ctx, "filter status:equals:open"); err != nil {
		t.Fatalf("filter: %v", err)
	}

	out.Reset()

	if err := b.exec(ctx, "summary"); err != nil {
		t.Fatalf("summary: %v", err)
	}

	want := lines("High   1", "Medium 1", "Low    0") + "\n"
	if got := out.String(); got != want {
		t.Fatalf("summary = %q, want %q", got, want)
	}
}
