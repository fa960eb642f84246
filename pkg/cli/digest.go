package cli

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/usecase"
	"github.com/urfave/cli/v3"
)

var ErrInvalidTime = goerr.New("invalid time")

// parseNow accepts RFC3339 or YYYY-MM-DD. Empty returns the current time.
func parseNow(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, goerr.Wrap(ErrInvalidTime, "time must be RFC3339 or YYYY-MM-DD", goerr.V("now", s))
}

func cmdDigest() *cli.Command {
	var appCfg appConfig
	var send bool
	var now string
	var concurrency int
	var asJSON bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "send",
			Usage:       "Send the digest and mark the notifications sent",
			Destination: &send,
		},
		&cli.StringFlag{
			Name:        "now",
			Usage:       "Run as of this time (RFC3339 or YYYY-MM-DD)",
			Destination: &now,
		},
		&cli.IntFlag{
			Name:        "concurrency",
			Usage:       "Number of recipients notified in parallel",
			Value:       4,
			Sources:     cli.EnvVars("GRCBOOK_DIGEST_CONCURRENCY"),
			Destination: &concurrency,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print the result as JSON",
			Destination: &asJSON,
		},
	}
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:    "digest",
		Aliases: []string{"d"},
		Usage:   "Scan cycle tasks and show or send the notification digest",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			at, err := parseNow(now)
			if err != nil {
				return err
			}

			a, err := appCfg.build(ctx, usecase.WithDigestConcurrency(concurrency))
			if err != nil {
				return err
			}
			defer a.Close()

			w := c.Root().Writer
			scan, err := a.uc.Digest.Scan(ctx, at)
			if err != nil {
				return err
			}

			if send {
				flush, err := a.uc.Digest.Flush(ctx, at)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(w, map[string]any{"scan": scan, "flush": flush})
				}
				_, _ = headColor.Fprintf(w, "Created %d notification(s)\n", scan.Created)
				for _, r := range flush.Sent {
					_, _ = okColor.Fprintf(w, "  sent: %s\n", r)
				}
				for r, msg := range flush.Failed {
					_, _ = errColor.Fprintf(w, "  failed: %s: %s\n", r, msg)
				}
				return nil
			}

			digest, err := a.uc.Digest.Digest(ctx, at)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(w, map[string]any{"scan": scan, "digest": digest})
			}
			_, _ = headColor.Fprintf(w, "Created %d notification(s)\n", scan.Created)
			printDigest(w, digest)
			return nil
		},
	}
}
