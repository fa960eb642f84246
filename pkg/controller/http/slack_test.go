package http_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	server "github.com/secmon-lab/grcbook/pkg/controller/http"
	"github.com/secmon-lab/grcbook/pkg/repository/memory"
	"github.com/secmon-lab/grcbook/pkg/usecase"
)

const signingSecret = "test-signing-secret"

// computeSlackSignature computes the Slack signature for testing
func computeSlackSignature(secret, timestamp, body string) string {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(h, "v0:%s:%s", timestamp, body)
	return "v0=" + hex.EncodeToString(h.Sum(nil))
}

func TestVerifySlackSignature(t *testing.T) {
	body := []byte("command=%2Fgrcbook&text=digest")
	now := fixedNow
	ts := strconv.FormatInt(now.Unix(), 10)

	t.Run("valid signature", func(t *testing.T) {
		sig := computeSlackSignature(signingSecret, ts, string(body))
		gt.NoError(t, server.VerifySlackSignature(signingSecret, ts, sig, body, now))
	})

	tests := []struct {
		name      string
		timestamp string
		signature string
		body      string
	}{
		{"invalid signature", ts, "v0=invalid_signature", string(body)},
		{"missing timestamp", "", computeSlackSignature(signingSecret, ts, string(body)), string(body)},
		{"missing signature", ts, "", string(body)},
		{"invalid timestamp format", "not-a-number", computeSlackSignature(signingSecret, "not-a-number", string(body)), string(body)},
		{"different secret", ts, computeSlackSignature("wrong-secret", ts, string(body)), string(body)},
		{"different body", ts, computeSlackSignature(signingSecret, ts, "different body"), string(body)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := server.VerifySlackSignature(signingSecret, tt.timestamp, tt.signature, []byte(tt.body), now)
			gt.Error(t, err).Is(server.ErrSlackSignature)
		})
	}

	t.Run("timestamp too old", func(t *testing.T) {
		old := strconv.FormatInt(now.Add(-10*time.Minute).Unix(), 10)
		sig := computeSlackSignature(signingSecret, old, string(body))
		gt.Error(t, server.VerifySlackSignature(signingSecret, old, sig, body, now)).Is(server.ErrSlackSignature)
	})

	t.Run("timestamp in the future", func(t *testing.T) {
		future := strconv.FormatInt(now.Add(10*time.Minute).Unix(), 10)
		sig := computeSlackSignature(signingSecret, future, string(body))
		gt.Error(t, server.VerifySlackSignature(signingSecret, future, sig, body, now)).Is(server.ErrSlackSignature)
	})
}

type fakeDirectory map[string]string

func (d fakeDirectory) EmailOf(ctx context.Context, userID string) (string, error) {
	email, ok := d[userID]
	if !ok {
		return "", goerr.New("unknown user", goerr.V("user_id", userID))
	}
	return email, nil
}

func newSlashServer(t *testing.T) *server.Server {
	t.Helper()
	ctx := context.Background()
	clock := func() time.Time { return fixedNow }

	uc := usecase.New(memory.New(), usecase.WithClock(clock))
	_, err := uc.Import.ImportFile(ctx, strings.NewReader(workflowFile), "workflow.csv", usecase.ImportOptions{})
	gt.NoError(t, err).Required()
	_, err = uc.Digest.Scan(ctx, fixedNow)
	gt.NoError(t, err).Required()

	dir := fakeDirectory{"U123": "Bob@Example.com", "U456": "carol@example.com"}
	srv, err := server.New(uc,
		server.WithClock(clock),
		server.WithSlackCommand(dir, signingSecret, "https://grc.example.com/records"),
	)
	gt.NoError(t, err).Required()
	return srv
}

func slashRequest(userID, text string, signed bool) *http.Request {
	form := url.Values{}
	form.Set("command", "/grcbook")
	form.Set("user_id", userID)
	form.Set("team_id", "T1")
	form.Set("text", text)
	body := form.Encode()

	req := httptest.NewRequest(http.MethodPost, "/slack/command", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	ts := strconv.FormatInt(fixedNow.Unix(), 10)
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	if signed {
		req.Header.Set("X-Slack-Signature", computeSlackSignature(signingSecret, ts, body))
	} else {
		req.Header.Set("X-Slack-Signature", "v0=forged")
	}
	return req
}

type slashResponse struct {
	ResponseType string           `json:"response_type"`
	Text         string           `json:"text"`
	Blocks       []map[string]any `json:"blocks"`
}

func decodeSlash(t *testing.T, w *httptest.ResponseRecorder) slashResponse {
	t.Helper()
	gt.Number(t, w.Code).Equal(http.StatusOK)
	var resp slashResponse
	gt.NoError(t, json.NewDecoder(w.Body).Decode(&resp)).Required()
	gt.Value(t, resp.ResponseType).Equal("ephemeral")
	return resp
}

func TestSlashCommand(t *testing.T) {
	srv := newSlashServer(t)

	t.Run("digest for the caller", func(t *testing.T) {
		resp := decodeSlash(t, do(srv, slashRequest("U123", "digest", true)))
		gt.String(t, resp.Text).Contains("Your grcbook digest for 03/10/2026")
		gt.Bool(t, len(resp.Blocks) > 0).True()
	})

	t.Run("empty text shows the digest", func(t *testing.T) {
		resp := decodeSlash(t, do(srv, slashRequest("U123", "", true)))
		gt.String(t, resp.Text).Contains("Your grcbook digest")
	})

	t.Run("nothing pending", func(t *testing.T) {
		resp := decodeSlash(t, do(srv, slashRequest("U456", "digest", true)))
		gt.Value(t, resp.Text).Equal("You have no pending notifications.")
	})

	t.Run("unknown caller", func(t *testing.T) {
		resp := decodeSlash(t, do(srv, slashRequest("U999", "digest", true)))
		gt.String(t, resp.Text).Contains("could not be loaded")
	})

	t.Run("help", func(t *testing.T) {
		resp := decodeSlash(t, do(srv, slashRequest("U123", "help", true)))
		gt.String(t, resp.Text).Contains("Usage")
	})

	t.Run("forged signature", func(t *testing.T) {
		w := do(srv, slashRequest("U123", "digest", false))
		gt.Number(t, w.Code).Equal(http.StatusUnauthorized)
	})
}

func TestSlashCommand_Disabled(t *testing.T) {
	srv := newServer(t, memory.New())
	w := do(srv, slashRequest("U123", "digest", true))
	gt.Number(t, w.Code).Equal(http.StatusNotFound)
}
