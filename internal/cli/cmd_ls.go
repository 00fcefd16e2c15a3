package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/entity"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/query"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

var (
	errKindRequired   = errors.New("list kind required (risks|tasks|resources)")
	errNegativeLimit  = errors.New("--limit must be non-negative")
	errNegativeOffset = errors.New("--offset must be non-negative")
)

// LsCmd returns the ls command.
func LsCmd(a *app) *Command {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	vf := addViewFlags(fs)
	limit := fs.IntP("limit", "n", a.cfg.PageSize, "Maximum records to show (0 = all)")
	offset := fs.Int("offset", 0, "Skip first N records")
	from := fs.String("from", "", "Read the list from a JSON/YAML `file` (\"-\" for stdin) instead of the backend")
	asJSON := fs.Bool("json", false, "Print records as JSON")

	return &Command{
		Flags: fs,
		Usage: "ls <kind> [flags]",
		Short: "List risks, tasks or resources",
		Long: `List one entity kind through the view pipeline: search, filter, sort, page.

Search matches a case-insensitive substring in the search fields. Filters are
ANDed. Records missing the sort field are listed last. Records without an id
are skipped with a warning.

Examples:
  pm ls risks --filter severity:in-range:[7,]
  pm ls tasks --search login --sort deadline:desc --limit 10
  pm ls resources --filter low_stock:equals:true`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errKindRequired
			}

			if *limit < 0 {
				return errNegativeLimit
			}

			if *offset < 0 {
				return errNegativeOffset
			}

			kind, err := entity.ParseKind(args[0])
			if err != nil {
				return err
			}

			return a.execLs(ctx, o, kind, vf, query.Page{Limit: *limit, Offset: *offset}, *from, *asJSON)
		},
	}
}

func (a *app) execLs(
	ctx context.Context, o *IO, kind entity.Kind, vf viewFlags, page query.Page, from string, asJSON bool,
) error {
	e, err := a.catalog.Get(kind)
	if err != nil {
		return err
	}

	// Validate the view before fetching anything.
	state, err := a.state(e, vf)
	if err != nil {
		return err
	}

	plan, err := query.Compile(e.Schema, state, a.pipelineOptions())
	if err != nil {
		return err
	}

	_, records, err := a.source(o.in, from).Records(ctx, kind)
	if err != nil {
		return err
	}

	res := plan.Apply(records)
	warnSkipped(o, kind, res.Skipped)

	if len(res.Records) == 0 {
		if asJSON {
			return writeJSON(o, []any{})
		}

		o.Println(emptyViewMessage)

		return nil
	}

	window, err := query.Paginate(res.Records, page)
	if err != nil {
		return fmt.Errorf("%w (%d matching)", err, len(res.Records))
	}

	if asJSON {
		out := make([]map[string]any, len(window))
		for i, rec := range window {
			out[i] = jsonRecord(e, rec)
		}

		return writeJSON(o, out)
	}

	printRecords(o, e, window)

	return nil
}

func printRecords(o *IO, e entity.Entity, records []record.Record) {
	for _, rec := range records {
		o.Println(formatLine(e, rec))
	}
}
