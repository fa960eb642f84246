package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

type Slack struct {
	botToken      string
	signingSecret string
	notify   bool
	cacheTTL time.Duration
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (person lookup and digest DMs)",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("GRCBOOK_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-signing-secret",
			Usage:       "Slack signing secret (enables the /grcbook slash command)",
			Category:    "Slack",
			Destination: &x.signingSecret,
			Sources:     cli.EnvVars("GRCBOOK_SLACK_SIGNING_SECRET"),
		},
		&cli.BoolFlag{
			Name:        "slack-notify",
			Usage:       "Send digests as Slack direct messages",
			Category:    "Slack",
			Value:       true,
			Destination: &x.notify,
			Sources:     cli.EnvVars("GRCBOOK_SLACK_NOTIFY"),
		},
		&cli.DurationFlag{
			Name:        "slack-cache-ttl",
			Usage:       "How long Slack user lookups are cached",
			Category:    "Slack",
			Value:       slack.DefaultCacheTTL,
			Destination: &x.cacheTTL,
			Sources:     cli.EnvVars("GRCBOOK_SLACK_CACHE_TTL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.Int("signing-secret.len", len(x.signingSecret)),
		slog.Bool("notify", x.notify),
		slog.Duration("cache-ttl", x.cacheTTL),
	)
}

// IsConfigured reports whether a bot token is set
func (x *Slack) IsConfigured() bool {
	return x.botToken != ""
}

// SigningSecret returns the secret used to verify slash command requests
func (x *Slack) SigningSecret() string {
	return x.signingSecret
}

// Notify reports whether digests should be sent over Slack
func (x *Slack) Notify() bool {
	return x.IsConfigured() && x.notify
}

// Configure creates the Slack service. It returns nil when no token is set.
func (x *Slack) Configure(appURL string) (slack.Service, error) {
	if !x.IsConfigured() {
		return nil, nil
	}
	svc, err := slack.New(x.botToken,
		slack.WithCacheTTL(x.cacheTTL),
		slack.WithAppURL(appURL),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}
	return svc, nil
}
