package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/config"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(cfg *config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files and variables it was loaded from. Secrets are masked.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			o.Printf("%s", config.Format(*cfg))

			return nil
		},
	}
}
