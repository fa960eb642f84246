package mail

import (
	"bytes"
	"context"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
	gomail "github.com/wneessen/go-mail"
)

var ErrInvalidConfig = goerr.New("invalid mail configuration")

// SendFunc delivers one composed message
type SendFunc func(ctx context.Context, msg *gomail.Msg) error

// Config holds the SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	AppURL   string
}

// Sender delivers digests by e-mail
type Sender struct {
	cfg        Config
	clientOpts []gomail.Option
	send       SendFunc
	now        func() time.Time
}

type Option func(*Sender)

// WithSendFunc replaces SMTP delivery
func WithSendFunc(f SendFunc) Option {
	return func(s *Sender) {
		s.send = f
	}
}

func New(cfg Config, opts ...Option) (*Sender, error) {
	if cfg.Host == "" {
		return nil, goerr.Wrap(ErrInvalidConfig, "SMTP host is required")
	}
	if cfg.From == "" {
		return nil, goerr.Wrap(ErrInvalidConfig, "sender address is required")
	}
	if err := gomail.NewMsg().From(cfg.From); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid sender address", goerr.V("from", cfg.From), goerr.V("error", err.Error()))
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}

	s := &Sender{
		cfg: cfg,
		clientOpts: []gomail.Option{
			gomail.WithPort(cfg.Port),
			gomail.WithTLSPolicy(gomail.TLSOpportunistic),
			gomail.WithTimeout(30 * time.Second),
		},
		now: time.Now,
	}
	if cfg.Username != "" {
		s.clientOpts = append(s.clientOpts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	s.send = s.dialAndSend
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// dialAndSend opens one SMTP connection per message so concurrent digests do
// not share a client
func (s *Sender) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	client, err := gomail.NewClient(s.cfg.Host, s.clientOpts...)
	if err != nil {
		return goerr.Wrap(err, "failed to create SMTP client", goerr.V("host", s.cfg.Host))
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// Compose builds the digest message for its recipient
func (s *Sender) Compose(msg *model.DigestMessage) (*gomail.Msg, error) {
	body, err := Render(msg, s.cfg.AppURL)
	if err != nil {
		return nil, err
	}

	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, goerr.Wrap(err, "invalid sender address", goerr.V("from", s.cfg.From))
	}
	if err := m.To(msg.Recipient); err != nil {
		return nil, goerr.Wrap(err, "invalid recipient address", goerr.V("recipient", msg.Recipient))
	}
	m.Subject(Subject(msg))
	m.SetDateWithValue(s.now())
	m.SetBodyString(gomail.TypeTextPlain, body)
	return m, nil
}

// Notify implements interfaces.Notifier
func (s *Sender) Notify(ctx context.Context, msg *model.DigestMessage) error {
	m, err := s.Compose(msg)
	if err != nil {
		return err
	}

	if err := s.send(ctx, m); err != nil {
		return goerr.Wrap(err, "failed to send digest mail",
			goerr.V("recipient", msg.Recipient), goerr.V("host", s.cfg.Host), goerr.V("port", s.cfg.Port))
	}

	logging.From(ctx).Debug("digest mail sent", "recipient", msg.Recipient)
	return nil
}

// Subject returns the mail subject of a digest
func Subject(msg *model.DigestMessage) string {
	return "grcbook digest for " + msg.Date.ExportString()
}

type section struct {
	Title string
	Tasks []model.TaskRef
}

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"date": func(d model.Date) string { return d.ExportString() },
}).Parse(`Hello,

Here is your grcbook digest for {{ date .Date }}.
{{ range .Sections }}
{{ .Title }}
{{ range .Tasks }}  - {{ .Slug }} {{ .Title }}{{ if .DueDate }} (due {{ date .DueDate }}){{ end }}{{ if .Cycle }} in {{ .Cycle }}{{ end }}{{ if $.AppURL }}
    {{ $.AppURL }}/{{ .ID }}{{ end }}
{{ end }}{{ end }}
You receive this message because you are assigned to these items.
`))

// Render renders the plain text body of a digest
func Render(msg *model.DigestMessage, appURL string) (string, error) {
	data := struct {
		Date     model.Date
		Sections []section
		AppURL   string
	}{
		Date:   msg.Date,
		AppURL: strings.TrimRight(appURL, "/"),
	}
	for _, kind := range types.AllNotificationKinds() {
		if tasks := msg.Sections[kind]; len(tasks) > 0 {
			data.Sections = append(data.Sections, section{Title: kind.Title(), Tasks: tasks})
		}
	}

	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to render digest mail", goerr.V("recipient", msg.Recipient))
	}
	return buf.String(), nil
}
