package cli

import (
	"context"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
)

// WhoamiCmd returns the whoami command.
func WhoamiCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("whoami", flag.ContinueOnError),
		Usage: "whoami",
		Short: "Show the user the token belongs to",
		Long: `Decode the bearer token (--token or PM_TOKEN) and show its user. The
signature is checked when jwt_secret is configured.`,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			who, err := a.identity()
			if err != nil {
				return err
			}

			o.Println("user_id=" + who.UserID)

			if who.Email != "" {
				o.Println("email=" + who.Email)
			}

			if len(who.Roles) > 0 {
				o.Println("roles=" + strings.Join(who.Roles, ","))
			}

			if !who.ExpiresAt.IsZero() {
				o.Println("expires_at=" + who.ExpiresAt.UTC().Format(time.RFC3339))
			}

			return nil
		},
	}
}
