package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/service/mail"
	"github.com/urfave/cli/v3"
)

// Mail holds the SMTP settings for digest delivery
type Mail struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func (x *Mail) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "smtp-host",
			Usage:       "SMTP server host; digests are mailed when set",
			Category:    "Mail",
			Destination: &x.host,
			Sources:     cli.EnvVars("GRCBOOK_SMTP_HOST"),
		},
		&cli.IntFlag{
			Name:        "smtp-port",
			Usage:       "SMTP server port",
			Category:    "Mail",
			Value:       587,
			Destination: &x.port,
			Sources:     cli.EnvVars("GRCBOOK_SMTP_PORT"),
		},
		&cli.StringFlag{
			Name:        "smtp-username",
			Usage:       "SMTP user name (PLAIN auth when set)",
			Category:    "Mail",
			Destination: &x.username,
			Sources:     cli.EnvVars("GRCBOOK_SMTP_USERNAME"),
		},
		&cli.StringFlag{
			Name:        "smtp-password",
			Usage:       "SMTP password",
			Category:    "Mail",
			Destination: &x.password,
			Sources:     cli.EnvVars("GRCBOOK_SMTP_PASSWORD"),
		},
		&cli.StringFlag{
			Name:        "mail-from",
			Usage:       "Sender address of digest mails",
			Category:    "Mail",
			Destination: &x.from,
			Sources:     cli.EnvVars("GRCBOOK_MAIL_FROM"),
		},
	}
}

func (x Mail) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("host", x.host),
		slog.Int("port", x.port),
		slog.String("from", x.from),
		slog.Int("password.len", len(x.password)),
	)
}

// IsConfigured reports whether an SMTP host is set
func (x *Mail) IsConfigured() bool {
	return x.host != ""
}

// Configure creates the mail sender. It returns nil when no host is set.
func (x *Mail) Configure(appURL string) (*mail.Sender, error) {
	if !x.IsConfigured() {
		return nil, nil
	}
	sender, err := mail.New(mail.Config{
		Host:     x.host,
		Port:     x.port,
		Username: x.username,
		Password: x.password,
		From:     x.from,
		AppURL:   appURL,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize mail sender")
	}
	return sender, nil
}
