package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/auth"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/entity"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/query"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// emptyViewMessage is printed when filters leave nothing to show.
const emptyViewMessage = "no results match your filters"

var errMineUnsupported = errors.New("--mine is not supported for this list")

// viewFlags are the search/filter/sort flags shared by ls and browse.
type viewFlags struct {
	search  *string
	in      *[]string
	filters *[]string
	sort    *string
	mine    *bool
}

func addViewFlags(fs *flag.FlagSet) viewFlags {
	return viewFlags{
		search:  fs.StringP("search", "s", "", "Case-insensitive substring `query`"),
		in:      fs.StringSlice("in", nil, "Search only these `fields` (default: list defaults)"),
		filters: fs.StringArrayP("filter", "f", nil, "Filter `field:op:value` (op: equals|contains|in-range|all); repeatable"),
		sort:    fs.String("sort", "", "Sort `field[:asc|desc]`; \"none\" keeps source order"),
		mine:    fs.Bool("mine", false, "Only items owned by or assigned to the token's user"),
	}
}

// ownerField is the field --mine filters on.
var ownerField = map[entity.Kind]string{
	entity.Risks: "owner",
	entity.Tasks: "assignee",
}

// state builds the view state for e from the flags.
func (a *app) state(e entity.Entity, vf viewFlags) (query.ViewState, error) {
	state := query.DefaultViewState(e.Schema)
	state.SearchQuery = *vf.search
	state.SearchFields = *vf.in

	for _, text := range *vf.filters {
		c, err := query.ParseCriterion(text)
		if err != nil {
			return query.ViewState{}, err
		}

		state.Filters = append(state.Filters, c)
	}

	switch s := strings.TrimSpace(*vf.sort); s {
	case "":
	case "none":
		state.Sort = query.SortSpec{}
	default:
		spec, err := query.ParseSort(s)
		if err != nil {
			return query.ViewState{}, err
		}

		state.Sort = spec
	}

	if *vf.mine {
		c, err := a.mine(e)
		if err != nil {
			return query.ViewState{}, err
		}

		state.Filters = append(state.Filters, c)
	}

	return state, nil
}

func (a *app) identity() (auth.Context, error) {
	return auth.Service{Secret: []byte(a.cfg.JWTSecret)}.Decode(a.cfg.Token)
}

func (a *app) mine(e entity.Entity) (query.FilterCriterion, error) {
	field, ok := ownerField[e.Kind]
	if !ok {
		return query.FilterCriterion{}, fmt.Errorf("%w: %s", errMineUnsupported, e.Kind)
	}

	who, err := a.identity()
	if err != nil {
		return query.FilterCriterion{}, fmt.Errorf("--mine: %w", err)
	}

	return query.Equals(field, record.String(who.UserID)), nil
}

func (a *app) pipelineOptions() query.Options {
	return query.Options{Logger: a.logger, Locale: a.cfg.Language()}
}

// warnSkipped turns skipped records into warnings.
func warnSkipped(o *IO, kind entity.Kind, skipped []query.Skip) {
	for _, s := range skipped {
		o.Warn(fmt.Sprintf("%s record #%d skipped (%v)", kind, s.Index, s.Err), "fix the record in the backend")
	}
}

// listColumns are shown after the title, in order, when present.
var listColumns = map[entity.Kind][]string{
	entity.Risks:     {"severity", "probability", "impact", "owner"},
	entity.Tasks:     {"priority", "deadline", "assignee"},
	entity.Resources: {"available", "total", "low_stock"},
}

// formatLine renders one record: "<id> [<state>] <title> key=value ...".
func formatLine(e entity.Entity, rec record.Record) string {
	var b strings.Builder

	b.WriteString(rec.ID)
	b.WriteString(" [")

	state := "-"

	for _, f := range []string{"status", "type"} {
		if v, ok := e.Schema.Resolve(rec, f); ok {
			state = display(v)

			break
		}
	}

	b.WriteString(state)
	b.WriteString("] ")

	for _, f := range []string{"title", "name"} {
		if v, ok := e.Schema.Resolve(rec, f); ok {
			b.WriteString(display(v))

			break
		}
	}

	for _, f := range listColumns[e.Kind] {
		if v, ok := e.Schema.Resolve(rec, f); ok {
			b.WriteString(" ")
			b.WriteString(f)
			b.WriteString("=")
			b.WriteString(display(v))
		}
	}

	return b.String()
}

// display formats numbers to at most two decimals.
func display(v record.Value) string {
	if f, ok := v.Float(); ok {
		return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
	}

	return v.Text()
}

// jsonRecord flattens a record with its derived fields for --json output.
func jsonRecord(e entity.Entity, rec record.Record) map[string]any {
	out := map[string]any{"id": rec.ID}

	for _, f := range e.Schema.Fields() {
		v, ok := e.Schema.Resolve(rec, f)
		if !ok {
			continue
		}

		switch v.Kind() {
		case record.KindNumber:
			out[f], _ = v.Float()
		case record.KindBool:
			out[f], _ = v.BoolValue()
		default:
			out[f] = v.Text()
		}
	}

	return out
}

func writeJSON(o *IO, v any) error {
	enc := json.NewEncoder(o.Out())
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}

	return nil
}
