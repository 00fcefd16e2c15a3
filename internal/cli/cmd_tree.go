package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/entity"
)

// TreeCmd returns the tree command.
func TreeCmd(a *app) *Command {
	fs := flag.NewFlagSet("tree", flag.ContinueOnError)
	from := fs.String("from", "", "Read tasks from a JSON/YAML `file` (\"-\" for stdin)")

	return &Command{
		Flags: fs,
		Usage: "tree [flags]",
		Short: "Show tasks as a parent/child tree",
		Long: `Show tasks nested under their parent task. Tasks whose parent is missing are
shown at the top level, and a parent link that would form a cycle is ignored.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			body, err := a.source(o.in, *from).Raw(ctx, entity.Tasks)
			if err != nil {
				return err
			}

			tasks, err := entity.DecodeTasks(body)
			if err != nil {
				return fmt.Errorf("decode tasks: %w", err)
			}

			roots := entity.BuildTree(tasks)
			if len(roots) == 0 {
				o.Println("no tasks")

				return nil
			}

			return entity.RenderTree(o.Out(), roots)
		},
	}
}
