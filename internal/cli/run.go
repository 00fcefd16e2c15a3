// Package cli implements the pm command line: list views over risks, tasks
// and resources, summaries, the task tree, an interactive browser and the
// child-item commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/config"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/entity"
)

// app carries what commands share for one invocation.
type app struct {
	cfg     config.Config
	catalog *entity.Catalog
	logger  *zap.Logger
	env     map[string]string
	now     func() time.Time
}

// Run is the main entry point. Returns exit code.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("pm", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{})

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	apiURL := globals.String("api-url", "", "Backend base `url`")
	project := globals.StringP("project", "p", "", "Project `id`")
	token := globals.String("token", "", "Bearer `token` (or PM_TOKEN)")
	logLevel := globals.String("log-level", "", "Log `level`: debug|info|warn|error")
	help := globals.BoolP("help", "h", false, "Show help")

	if len(args) > 0 {
		args = args[1:]
	}

	if err := globals.Parse(args); err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, globals, nil)

		return 1
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDir:    *workDir,
		ConfigPath: *configPath,
		Env:        env,
		Overrides: config.Config{
			APIURL:   *apiURL,
			Project:  *project,
			Token:    *token,
			LogLevel: *logLevel,
		},
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	rules, err := cfg.Rules()
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	logger, err := newLogger(cfg.LogLevel, errOut)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	defer func() { _ = logger.Sync() }()

	a := &app{cfg: cfg, catalog: entity.NewCatalog(rules), logger: logger, env: env, now: time.Now}
	commands := a.commands()

	rest := globals.Args()
	if *help || len(rest) == 0 {
		printUsage(out, globals, commands)

		return 0
	}

	name := rest[0]
	if name == "help" {
		printUsage(out, globals, commands)

		return 0
	}

	var cmd *Command

	for _, c := range commands {
		if c.Name() == name {
			cmd = c

			break
		}
	}

	if cmd == nil {
		fprintln(errOut, "error: unknown command:", name)
		printUsage(errOut, globals, commands)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				logger.Debug("interrupted")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	return cmd.Run(ctx, NewIO(in, out, errOut), rest[1:])
}

func (a *app) commands() []*Command {
	return []*Command{
		LsCmd(a),
		SummaryCmd(a),
		DashboardCmd(a),
		TreeCmd(a),
		BrowseCmd(a),
		ChildCmd(a),
		WhoamiCmd(a),
		PrintConfigCmd(&a.cfg),
	}
}

func printUsage(w io.Writer, globals *flag.FlagSet, commands []*Command) {
	fprintln(w, "pm - project list views for risks, tasks and resources")
	fprintln(w)
	fprintln(w, "Usage: pm [global flags] <command> [args]")
	fprintln(w)

	if len(commands) > 0 {
		fprintln(w, "Commands:")

		for _, c := range commands {
			fprintln(w, c.HelpLine())
		}

		fprintln(w)
	}

	fprintln(w, "Global flags:")
	fprintln(w, globals.FlagUsages())
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

var errUnknownLevel = errors.New("unknown log level")

// newLogger writes console-encoded logs to errOut at level.
func newLogger(level string, errOut io.Writer) (*zap.Logger, error) {
	lvl := zapcore.ErrorLevel

	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("%w: %q", errUnknownLevel, level)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(errOut), lvl)

	return zap.New(core).Named("pm"), nil
}
