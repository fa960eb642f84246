package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v3"
)

// Digest holds the notification digest settings of the serve command
type Digest struct {
	schedule    string
	concurrency int
	runOnStart  bool
}

func (x *Digest) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "digest-schedule",
			Usage:       "Cron schedule of the digest run, empty disables the worker",
			Category:    "Digest",
			Value:       "0 9 * * *",
			Destination: &x.schedule,
			Sources:     cli.EnvVars("GRCBOOK_DIGEST_SCHEDULE"),
		},
		&cli.IntFlag{
			Name:        "digest-concurrency",
			Usage:       "Number of recipients notified in parallel",
			Category:    "Digest",
			Value:       4,
			Destination: &x.concurrency,
			Sources:     cli.EnvVars("GRCBOOK_DIGEST_CONCURRENCY"),
		},
		&cli.BoolFlag{
			Name:        "digest-run-on-start",
			Usage:       "Run the digest once when the server starts",
			Category:    "Digest",
			Destination: &x.runOnStart,
			Sources:     cli.EnvVars("GRCBOOK_DIGEST_RUN_ON_START"),
		},
	}
}

// Schedule returns the cron schedule, empty when the worker is disabled
func (x *Digest) Schedule() string {
	return x.schedule
}

func (x *Digest) Concurrency() int {
	return x.concurrency
}

func (x *Digest) RunOnStart() bool {
	return x.runOnStart
}

// Validate checks the cron schedule and concurrency
func (x *Digest) Validate() error {
	if x.concurrency < 1 {
		return goerr.Wrap(ErrInvalidConfig, "digest concurrency must be positive", goerr.V("concurrency", x.concurrency))
	}
	if x.schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(x.schedule); err != nil {
		return goerr.Wrap(ErrInvalidConfig, "invalid digest schedule",
			goerr.V("schedule", x.schedule), goerr.V("error", err.Error()))
	}
	return nil
}
