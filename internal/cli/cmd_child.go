package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/store"
)

var (
	errChildUsage = errors.New("usage: pm child add|ls|rm ...")
	errBadSet     = errors.New("--set wants key=value")
)

// ChildCmd returns the child command.
func ChildCmd(a *app) *Command {
	fs := flag.NewFlagSet("child", flag.ContinueOnError)
	kind := fs.StringP("kind", "k", "", "Item `kind`: attachment|subtask|allocation")
	set := fs.StringArray("set", nil, "Item field `key=value`; repeatable")
	asJSON := fs.Bool("json", false, "Print items as JSON")

	return &Command{
		Flags: fs,
		Usage: "child <add|ls|rm> [args]",
		Short: "Manage local child items of a record",
		Long: `Manage child items hung off a risk, task or resource: attachments, subtasks
and allocations. Items live in the local store (see store.backend).

  pm child add <parent-id> --kind subtask --set title="Write tests"
  pm child ls <parent-id> [--kind subtask]
  pm child rm <item-id>`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) < 2 {
				return errChildUsage
			}

			repo, err := store.Open(ctx, a.cfg.StoreOptions())
			if err != nil {
				return err
			}

			defer func() { _ = repo.Close() }()

			switch args[0] {
			case "add":
				return a.childAdd(ctx, o, repo, args[1], *kind, *set, *asJSON)
			case "ls", "list":
				return childList(ctx, o, repo, args[1], *kind, *asJSON)
			case "rm", "remove":
				if err := repo.Delete(ctx, args[1]); err != nil {
					return err
				}

				o.Println("removed", args[1])

				return nil
			default:
				return fmt.Errorf("%w: unknown subcommand %q", errChildUsage, args[0])
			}
		},
	}
}

func (a *app) childAdd(
	ctx context.Context, o *IO, repo store.Repository, parent, kind string, set []string, asJSON bool,
) error {
	k, err := store.ParseItemKind(kind)
	if err != nil {
		return err
	}

	fields := make(map[string]string, len(set))

	for _, kv := range set {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: %q", errBadSet, kv)
		}

		fields[strings.TrimSpace(key)] = value
	}

	item, err := repo.Save(ctx, store.Item{ParentID: parent, Kind: k, Fields: fields, CreatedAt: a.now().UTC()})
	if err != nil {
		return err
	}

	a.logger.Debug("saved child item", zap.String("id", item.ID), zap.String("parent", item.ParentID))

	if asJSON {
		return writeJSON(o, item)
	}

	o.Println(item.ID)

	return nil
}

func childList(ctx context.Context, o *IO, repo store.Repository, parent, kind string, asJSON bool) error {
	filter := store.Filter{ParentID: parent}

	if kind != "" {
		k, err := store.ParseItemKind(kind)
		if err != nil {
			return err
		}

		filter.Kind = k
	}

	items, err := repo.List(ctx, filter)
	if err != nil {
		return err
	}

	if asJSON {
		if items == nil {
			items = []store.Item{}
		}

		return writeJSON(o, items)
	}

	if len(items) == 0 {
		o.Println("no items")

		return nil
	}

	for _, it := range items {
		o.Printf("%s [%s] %s%s\n", it.ID, it.Kind, it.CreatedAt.Format(time.DateOnly), formatFields(it.Fields))
	}

	return nil
}

func formatFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	var b strings.Builder

	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, fields[k])
	}

	return b.String()
}
