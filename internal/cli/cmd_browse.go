package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/entity"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/query"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

const historyFileName = ".pm_history"

var errQuit = errors.New("quit")

var browseCommands = []string{
	"search", "filter", "unfilter", "clear", "reset", "sort", "next", "prev", "page",
	"show", "reload", "summary", "help", "quit",
}

// BrowseCmd returns the browse command.
func BrowseCmd(a *app) *Command {
	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	vf := addViewFlags(fs)
	pageSize := fs.IntP("limit", "n", a.cfg.PageSize, "Records per page (0 = all)")
	from := fs.String("from", "", "Read the list from a JSON/YAML `file` instead of the backend")

	return &Command{
		Flags: fs,
		Usage: "browse <kind> [flags]",
		Short: "Browse a list interactively",
		Long: `Browse one list interactively. The view is recomputed only when the search,
filters, sort or the loaded records change.

Commands:
  search [text]            set the search query (empty clears it)
  filter field:op:value    add a filter
  unfilter [field]         drop filters on field, or all filters
  clear                    drop the search and all filters
  reset                    back to the initial view
  sort field[:dir]|none    change the sort
  next, prev, page N       move between pages
  show                     print the current page again
  reload                   fetch the list again
  summary                  count all loaded records per bucket
  quit                     leave`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errKindRequired
			}

			if *pageSize < 0 {
				return errNegativeLimit
			}

			if *from == "-" {
				return errors.New("browse reads commands from stdin; --from - is not supported")
			}

			kind, err := entity.ParseKind(args[0])
			if err != nil {
				return err
			}

			e, err := a.catalog.Get(kind)
			if err != nil {
				return err
			}

			state, err := a.state(e, vf)
			if err != nil {
				return err
			}

			b := &browser{
				o:        o,
				entity:   e,
				src:      a.source(nil, *from),
				memo:     query.NewMemo(query.New(e.Schema, a.pipelineOptions())),
				initial:  state,
				state:    state,
				pageSize: *pageSize,
			}

			return b.run(ctx, a.prompter(o))
		},
	}
}

// prompter reads browse commands one line at a time.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// prompter uses liner on an interactive terminal and a plain line reader
// otherwise.
func (a *app) prompter(o *IO) prompter {
	if o.in == os.Stdin && liner.TerminalSupported() {
		return newLinePrompter(historyPath(a.env))
	}

	return &scanPrompter{scanner: bufio.NewScanner(o.in)}
}

func historyPath(env map[string]string) string {
	home := env["HOME"]
	if home == "" {
		return ""
	}

	return filepath.Join(home, historyFileName)
}

type linePrompter struct {
	state   *liner.State
	history string
}

func newLinePrompter(history string) *linePrompter {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(func(line string) []string {
		var out []string

		for _, c := range browseCommands {
			if strings.HasPrefix(c, strings.ToLower(line)) {
				out = append(out, c)
			}
		}

		return out
	})

	if history != "" {
		if f, err := os.Open(history); err == nil {
			_, _ = state.ReadHistory(f)
			_ = f.Close()
		}
	}

	return &linePrompter{state: state, history: history}
}

func (p *linePrompter) Prompt(prompt string) (string, error) {
	line, err := p.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}

	return line, err
}

func (p *linePrompter) AppendHistory(line string) { p.state.AppendHistory(line) }

func (p *linePrompter) Close() error {
	if p.history != "" {
		if f, err := os.Create(p.history); err == nil {
			_, _ = p.state.WriteHistory(f)
			_ = f.Close()
		}
	}

	return p.state.Close()
}

type scanPrompter struct {
	scanner *bufio.Scanner
}

func (p *scanPrompter) Prompt(string) (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}

		return "", io.EOF
	}

	return p.scanner.Text(), nil
}

func (p *scanPrompter) AppendHistory(string) {}

func (p *scanPrompter) Close() error { return nil }

// browser is one interactive session over a single list.
type browser struct {
	o      *IO
	entity entity.Entity
	src    *source
	memo   *query.Memo

	records    []record.Record
	generation uint64
	initial    query.ViewState
	state      query.ViewState
	page       int
	pageSize   int
}

func (b *browser) run(ctx context.Context, p prompter) error {
	defer func() { _ = p.Close() }()

	if err := b.load(ctx); err != nil {
		return err
	}

	if err := b.show(); err != nil {
		return err
	}

	prompt := string(b.entity.Kind) + "> "

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := p.Prompt(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		p.AppendHistory(line)

		err = b.exec(ctx, line)
		if errors.Is(err, errQuit) {
			return nil
		}

		if err != nil {
			b.o.Println("error:", err)
		}
	}
}

// exec runs one browse command line.
func (b *browser) exec(ctx context.Context, line string) error {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		b.help()

		return nil
	case "search":
		next := b.state
		next.SearchQuery = rest

		return b.apply(next)
	case "filter":
		c, err := query.ParseCriterion(rest)
		if err != nil {
			return err
		}

		next := b.state
		next.Filters = append(slices.Clone(b.state.Filters), c)

		return b.apply(next)
	case "unfilter":
		next := b.state
		if rest == "" {
			next.Filters = nil
		} else {
			next.Filters = slices.DeleteFunc(slices.Clone(b.state.Filters), func(c query.FilterCriterion) bool {
				return c.Field == rest
			})
		}

		return b.apply(next)
	case "clear":
		next := b.state
		next.SearchQuery = ""
		next.Filters = nil

		return b.apply(next)
	case "reset":
		return b.apply(b.initial)
	case "sort":
		next := b.state

		switch rest {
		case "":
			next.Sort = b.entity.Schema.DefaultSort()
		case "none":
			next.Sort = query.SortSpec{}
		default:
			spec, err := query.ParseSort(rest)
			if err != nil {
				return err
			}

			next.Sort = spec
		}

		return b.apply(next)
	case "next", "n":
		return b.turn(b.page + 1)
	case "prev", "p":
		return b.turn(b.page - 1)
	case "page":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("page: want a number, got %q", rest)
		}

		return b.turn(n - 1)
	case "show", "ls":
		return b.show()
	case "reload":
		if err := b.load(ctx); err != nil {
			return err
		}

		return b.show()
	case "summary":
		return b.summary()
	default:
		return fmt.Errorf("unknown command %q (type help)", name)
	}
}

// load fetches the records, starts a new generation and returns to the
// first page.
func (b *browser) load(ctx context.Context) error {
	_, records, err := b.src.Records(ctx, b.entity.Kind)
	if err != nil {
		return err
	}

	b.records = records
	b.generation++
	b.page = 0

	_, skipped := wellFormed(records)
	for _, s := range skipped {
		b.o.ErrPrintln(fmt.Sprintf("warning: %s record #%d skipped (%v)", b.entity.Kind, s.Index, s.Err))
	}

	return nil
}

func (b *browser) view() (query.Result, error) {
	return b.memo.View(b.generation, b.records, b.state)
}

// apply adopts next if it compiles and returns to the first page.
func (b *browser) apply(next query.ViewState) error {
	if _, err := b.memo.View(b.generation, b.records, next); err != nil {
		return err
	}

	b.state = next
	b.page = 0

	return b.show()
}

func (b *browser) pages(n int) int {
	if b.pageSize == 0 || n == 0 {
		return 1
	}

	return (n + b.pageSize - 1) / b.pageSize
}

func (b *browser) turn(page int) error {
	res, err := b.view()
	if err != nil {
		return err
	}

	if page < 0 || page >= b.pages(len(res.Records)) {
		return fmt.Errorf("%w: page %d of %d", query.ErrOffsetOutOfBounds, page+1, b.pages(len(res.Records)))
	}

	b.page = page

	return b.show()
}

func (b *browser) show() error {
	res, err := b.view()
	if err != nil {
		return err
	}

	if len(res.Records) == 0 {
		b.o.Println(emptyViewMessage)

		return nil
	}

	window, err := query.Paginate(res.Records, query.Page{Limit: b.pageSize, Offset: b.page * b.pageSize})
	if err != nil {
		return err
	}

	b.o.Printf("page %d/%d (%d matching, %d total)\n", b.page+1, b.pages(len(res.Records)), len(res.Records), res.Total)
	printRecords(b.o, b.entity, window)

	return nil
}

// summary ignores the view state and counts every well-formed record.
func (b *browser) summary() error {
	records, _ := wellFormed(b.records)
	printCounts(b.o, "", query.Ordered(query.Summarize(records, b.entity.Summary), b.entity.SummaryOrder))

	return nil
}

func (b *browser) help() {
	b.o.Println("commands: " + strings.Join(browseCommands, ", "))
	b.o.Printf("search: %q  filters: %d  sort: %s\n", b.state.SearchQuery, len(b.state.Filters), b.state.Sort)
}
