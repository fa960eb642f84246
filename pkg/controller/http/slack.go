package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	slacksvc "github.com/secmon-lab/grcbook/pkg/service/slack"
	"github.com/secmon-lab/grcbook/pkg/utils/errutil"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
	"github.com/slack-go/slack"
)

// slackMaxSkew bounds how old a signed request may be
const slackMaxSkew = 5 * time.Minute

const slashCommandUsage = "Usage: `/grcbook digest` shows your pending notifications, `/grcbook help` shows this message."

// SlackDirectory resolves the caller of a slash command
type SlackDirectory interface {
	EmailOf(ctx context.Context, userID string) (string, error)
}

var (
	ErrSlackSignature = goerr.New("slack signature verification failed")
)

// WithSlackCommand serves the /grcbook slash command on /slack/command
func WithSlackCommand(directory SlackDirectory, signingSecret, appURL string) Options {
	return func(s *Server) {
		s.slackDirectory = directory
		s.slackSecret = signingSecret
		s.appURL = appURL
	}
}

// verifySlackSignature checks the v0 request signature against the signing secret
func verifySlackSignature(signingSecret, timestamp, signature string, body []byte, now time.Time) error {
	if timestamp == "" {
		return goerr.Wrap(ErrSlackSignature, "missing timestamp")
	}
	if signature == "" {
		return goerr.Wrap(ErrSlackSignature, "missing signature")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return goerr.Wrap(ErrSlackSignature, "invalid timestamp", goerr.V("timestamp", timestamp))
	}
	if d := now.Sub(time.Unix(ts, 0)); d > slackMaxSkew || d < -slackMaxSkew {
		return goerr.Wrap(ErrSlackSignature, "timestamp out of range",
			goerr.V("timestamp", timestamp), goerr.V("now", now.Unix()))
	}

	mac := hmac.New(sha256.New, []byte(signingSecret))
	_, _ = fmt.Fprintf(mac, "v0:%s:%s", timestamp, body)
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return goerr.Wrap(ErrSlackSignature, "signature mismatch")
	}
	return nil
}

// slackSignatureMiddleware rejects requests that Slack did not sign
func slackSignatureMiddleware(signingSecret string, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
			if err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
				return
			}

			if err := verifySlackSignature(signingSecret,
				r.Header.Get("X-Slack-Request-Timestamp"),
				r.Header.Get("X-Slack-Signature"),
				body, now()); err != nil {
				errutil.HandleHTTP(ctx, w, err, http.StatusUnauthorized)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// slashCommandHandler answers /grcbook with an ephemeral message
func (s *Server) slashCommandHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse slash command"), http.StatusBadRequest)
		return
	}
	logging.From(ctx).Info("slash command received",
		"user_id", cmd.UserID, "team_id", cmd.TeamID, "text", cmd.Text)

	var msg *slack.Msg
	switch sub := strings.ToLower(strings.TrimSpace(cmd.Text)); sub {
	case "", "digest":
		msg, err = s.pendingDigestMessage(ctx, cmd.UserID)
		if err != nil {
			_ = errutil.Handle(ctx, err, "slash command failed")
			msg = &slack.Msg{Text: "Sorry, your digest could not be loaded."}
		}
	default:
		msg = &slack.Msg{Text: slashCommandUsage}
	}

	msg.ResponseType = slack.ResponseTypeEphemeral
	writeJSON(w, r, http.StatusOK, msg)
}

func (s *Server) pendingDigestMessage(ctx context.Context, userID string) (*slack.Msg, error) {
	email, err := s.slackDirectory.EmailOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	digest, err := s.uc.Digest.Digest(ctx, now)
	if err != nil {
		return nil, err
	}

	sections := digest[model.NormalizeEmail(email)]
	if len(sections) == 0 {
		return &slack.Msg{Text: "You have no pending notifications."}, nil
	}

	blocks, text := slacksvc.BuildDigestBlocks(&model.DigestMessage{
		Recipient: email,
		Date:      model.DateOf(now.In(s.uc.Schema().Digest.TimeZone())),
		Sections:  sections,
	}, s.appURL)
	return &slack.Msg{
		Text:   text,
		Blocks: slack.Blocks{BlockSet: blocks},
	}, nil
}
