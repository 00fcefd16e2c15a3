package cli

import (
	"context"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/entity"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/query"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// doneStatus marks a finished task.
const doneStatus = "done"

// DashboardCmd returns the dashboard command.
func DashboardCmd(a *app) *Command {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	from := fs.String("from", "", "Read <kind>.json or <kind>.yaml lists from `dir`")
	asJSON := fs.Bool("json", false, "Print the dashboard as JSON")

	return &Command{
		Flags: fs,
		Usage: "dashboard [flags]",
		Short: "Show totals and summaries for every list",
		Long: `Show the project overview: per-list totals and summaries, high-severity
risks, low-stock resources and overdue tasks. Against the backend the three
lists are fetched concurrently.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			lists, err := a.source(o.in, *from).All(ctx)
			if err != nil {
				return err
			}

			d, err := a.dashboard(o, lists)
			if err != nil {
				return err
			}

			if *asJSON {
				return writeJSON(o, d)
			}

			printDashboard(o, d)

			return nil
		},
	}
}

type dashboardSection struct {
	Kind    entity.Kind `json:"kind"`
	Total   int         `json:"total"`
	Summary []countJSON `json:"summary"`
}

type dashboard struct {
	Sections  []dashboardSection `json:"sections"`
	HighRisks int                `json:"high_risks"`
	LowStock  int                `json:"low_stock"`
	Overdue   int                `json:"overdue_tasks"`
}

func (a *app) dashboard(o *IO, lists map[entity.Kind][]record.Record) (dashboard, error) {
	var d dashboard

	for _, kind := range entity.Kinds() {
		e, err := a.catalog.Get(kind)
		if err != nil {
			return dashboard{}, err
		}

		records, skipped := wellFormed(lists[kind])
		warnSkipped(o, kind, skipped)

		counts := query.Ordered(query.Summarize(records, e.Summary), e.SummaryOrder)

		d.Sections = append(d.Sections, dashboardSection{
			Kind:    kind,
			Total:   len(records),
			Summary: countsJSON(counts),
		})

		switch kind {
		case entity.Risks:
			d.HighRisks = highRisks(e, a.catalog.Rules().SeverityBands, records)
		case entity.Resources:
			d.LowStock = countWhere(records, func(rec record.Record) bool {
				v, ok := e.Schema.Resolve(rec, "low_stock")
				b, _ := v.BoolValue()

				return ok && b
			})
		case entity.Tasks:
			d.Overdue = overdue(e, records, a.now())
		}
	}

	return d, nil
}

func highRisks(e entity.Entity, bands query.Bands, records []record.Record) int {
	if len(bands) == 0 {
		return 0
	}

	top := bands[0].Label
	bucket := query.BandBucket(e.Schema, "severity", bands)

	return countWhere(records, func(rec record.Record) bool { return bucket(rec) == top })
}

// overdue counts unfinished tasks whose deadline is before today.
func overdue(e entity.Entity, records []record.Record, now time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	return countWhere(records, func(rec record.Record) bool {
		if status, ok := e.Schema.Resolve(rec, "status"); ok && status.Text() == doneStatus {
			return false
		}

		v, ok := e.Schema.Resolve(rec, "deadline")
		if !ok {
			return false
		}

		due, ok := v.Time()

		return ok && due.Before(today)
	})
}

func countWhere(records []record.Record, keep func(record.Record) bool) int {
	n := 0

	for _, rec := range records {
		if !rec.Malformed() && keep(rec) {
			n++
		}
	}

	return n
}

func printDashboard(o *IO, d dashboard) {
	for _, s := range d.Sections {
		o.Printf("%s: %d\n", s.Kind, s.Total)

		counts := make([]query.Count, len(s.Summary))
		for i, c := range s.Summary {
			counts[i] = query.Count{Key: c.Key, N: c.Count}
		}

		printCounts(o, "  ", counts)
	}

	o.Println()
	o.Printf("high risks:    %d\n", d.HighRisks)
	o.Printf("low stock:     %d\n", d.LowStock)
	o.Printf("overdue tasks: %d\n", d.Overdue)
}
