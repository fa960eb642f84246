package cli

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/cli/config"
	"github.com/secmon-lab/grcbook/pkg/domain/interfaces"
	"github.com/secmon-lab/grcbook/pkg/service/slack"
	"github.com/secmon-lab/grcbook/pkg/usecase"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// appConfig groups the flags shared by commands that touch records
type appConfig struct {
	repo    config.Repository
	schema  config.Schema
	slack   config.Slack
	mail    config.Mail
	storage config.Storage
	appURL  string
}

func (x *appConfig) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "app-url",
			Usage:       "Base URL of the GRC application, used for links in digests",
			Sources:     cli.EnvVars("GRCBOOK_APP_URL"),
			Destination: &x.appURL,
		},
	}
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.schema.Flags()...)
	flags = append(flags, x.slack.Flags()...)
	flags = append(flags, x.mail.Flags()...)
	flags = append(flags, x.storage.Flags()...)
	return flags
}

// app is the set of services a command runs with
type app struct {
	repo    interfaces.Repository
	uc      *usecase.UseCases
	slack   slack.Service // nil without a bot token
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.Default().Error("failed to close resource", "error", err.Error())
		}
	}
}

// build wires repository, schema, person directory, evidence host, export
// store and notifiers into the use cases
func (x *appConfig) build(ctx context.Context, opts ...usecase.Option) (*app, error) {
	schema, err := x.schema.Configure()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load schema")
	}

	repo, err := x.repo.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize repository")
	}
	a := &app{repo: repo, closers: []func() error{repo.Close}}

	stores, err := x.storage.Configure(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, stores.Close)

	ucOpts := []usecase.Option{
		usecase.WithSchema(schema),
		usecase.WithEvidenceHost(stores.EvidenceHost),
		usecase.WithClock(time.Now),
	}
	if stores.Store != nil {
		ucOpts = append(ucOpts, usecase.WithExportStore(stores.Store))
	}

	var notifiers []interfaces.Notifier
	slackSvc, err := x.slack.Configure(x.appURL)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.slack = slackSvc
	if slackSvc != nil {
		ucOpts = append(ucOpts, usecase.WithPersonDirectory(slackSvc))
		logging.Default().Info("Slack person directory enabled")
		if x.slack.Notify() {
			notifiers = append(notifiers, slackSvc)
		}
	}

	sender, err := x.mail.Configure(x.appURL)
	if err != nil {
		a.Close()
		return nil, err
	}
	if sender != nil {
		notifiers = append(notifiers, sender)
		logging.Default().Info("Mail digest enabled", "mail", x.mail)
	}
	if len(notifiers) > 0 {
		ucOpts = append(ucOpts, usecase.WithNotifiers(notifiers...))
	}

	a.uc = usecase.New(repo, append(ucOpts, opts...)...)
	return a, nil
}
