package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/entity"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/query"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// SummaryCmd returns the summary command.
func SummaryCmd(a *app) *Command {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	by := fs.String("by", "", "Group by `field` (default: severity band, status or type)")
	from := fs.String("from", "", "Read the list from a JSON/YAML `file` (\"-\" for stdin)")
	asJSON := fs.Bool("json", false, "Print counts as JSON")

	return &Command{
		Flags: fs,
		Usage: "summary <kind> [flags]",
		Short: "Count records per bucket",
		Long: `Count records per bucket. Risks group by severity band, tasks by status and
resources by type unless --by names another field. Records missing the field
count as Unknown. Filters do not apply: every record is counted.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errKindRequired
			}

			kind, err := entity.ParseKind(args[0])
			if err != nil {
				return err
			}

			e, err := a.catalog.Get(kind)
			if err != nil {
				return err
			}

			bucket, order, err := a.catalog.SummarizeBy(e, *by)
			if err != nil {
				return err
			}

			_, records, err := a.source(o.in, *from).Records(ctx, kind)
			if err != nil {
				return err
			}

			records, skipped := wellFormed(records)
			warnSkipped(o, kind, skipped)

			counts := query.Ordered(query.Summarize(records, bucket), order)

			if *asJSON {
				return writeJSON(o, countsJSON(counts))
			}

			printCounts(o, "", counts)

			return nil
		},
	}
}

type countJSON struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

func countsJSON(counts []query.Count) []countJSON {
	out := make([]countJSON, len(counts))
	for i, c := range counts {
		out[i] = countJSON{Key: c.Key, Count: c.N}
	}

	return out
}

func printCounts(o *IO, indent string, counts []query.Count) {
	width := 0
	for _, c := range counts {
		width = max(width, len(c.Key))
	}

	for _, c := range counts {
		o.Printf("%s%-*s %d\n", indent, width, c.Key, c.N)
	}
}

// wellFormed drops records without an ID, reporting them the way
// [query.Plan.Apply] does.
func wellFormed(records []record.Record) ([]record.Record, []query.Skip) {
	kept := make([]record.Record, 0, len(records))

	var skipped []query.Skip

	for i, rec := range records {
		if rec.Malformed() {
			skipped = append(skipped, query.Skip{Index: i, Err: query.ErrMalformedRecord})

			continue
		}

		kept = append(kept, rec)
	}

	return kept, skipped
}
