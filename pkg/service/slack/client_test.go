package slack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"github.com/secmon-lab/grcbook/pkg/service/slack"
)

func TestNew(t *testing.T) {
	t.Run("returns error when token is empty", func(t *testing.T) {
		_, err := slack.New("")
		gt.Value(t, err).NotNil()
	})

	t.Run("creates service when token is provided", func(t *testing.T) {
		svc, err := slack.New("test-token")
		gt.NoError(t, err).Required()
		gt.Value(t, svc).NotNil()
	})
}

// fakeSlack serves the Web API methods used by the client
type fakeSlack struct {
	mu      sync.Mutex
	lookups int
	posted  []string
}

func (f *fakeSlack) handler() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("/users.lookupByEmail", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.mu.Lock()
		f.lookups++
		f.mu.Unlock()

		if r.Form.Get("email") != "bob@example.com" {
			writeJSON(w, map[string]any{"ok": false, "error": "users_not_found"})
			return
		}
		writeJSON(w, map[string]any{
			"ok": true,
			"user": map[string]any{
				"id":        "U123",
				"name":      "bob",
				"real_name": "Bob Builder",
				"profile":   map[string]any{"email": "Bob@Example.com"},
			},
		})
	})
	mux.HandleFunc("/users.info", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		switch r.Form.Get("user") {
		case "U123":
			writeJSON(w, map[string]any{
				"ok": true,
				"user": map[string]any{
					"id":      "U123",
					"name":    "bob",
					"profile": map[string]any{"email": "Bob@Example.com"},
				},
			})
		case "UBOT":
			writeJSON(w, map[string]any{
				"ok":   true,
				"user": map[string]any{"id": "UBOT", "name": "grcbook", "profile": map[string]any{}},
			})
		default:
			writeJSON(w, map[string]any{"ok": false, "error": "user_not_found"})
		}
	})
	mux.HandleFunc("/conversations.open", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true, "channel": map[string]any{"id": "D999"}})
	})
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.mu.Lock()
		f.posted = append(f.posted, r.Form.Get("channel")+":"+r.Form.Get("text"))
		f.mu.Unlock()
		writeJSON(w, map[string]any{"ok": true, "channel": "D999", "ts": "1700000000.000100"})
	})
	return mux
}

func newFakeService(t *testing.T) (slack.Service, *fakeSlack) {
	t.Helper()
	fake := &fakeSlack{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	svc, err := slack.New("xoxb-test", slack.WithAPIURL(srv.URL+"/"), slack.WithAppURL("https://grc.example.com/records"))
	gt.NoError(t, err).Required()
	return svc, fake
}

func TestLookupByEmail(t *testing.T) {
	ctx := context.Background()
	svc, fake := newFakeService(t)

	p, err := svc.LookupByEmail(ctx, "bob@example.com")
	gt.NoError(t, err).Required()
	gt.Value(t, p).NotNil().Required()
	gt.Value(t, p.Email).Equal("bob@example.com")
	gt.Value(t, p.Name).Equal("Bob Builder")

	missing, err := svc.LookupByEmail(ctx, "nobody@example.com")
	gt.NoError(t, err).Required()
	gt.Value(t, missing).Nil()

	// both answers are cached
	_, _ = svc.LookupByEmail(ctx, "BOB@example.com")
	_, _ = svc.LookupByEmail(ctx, "nobody@example.com")
	gt.Number(t, fake.lookups).Equal(2)
}

func TestEmailOf(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFakeService(t)

	email, err := svc.EmailOf(ctx, "U123")
	gt.NoError(t, err).Required()
	gt.Value(t, email).Equal("bob@example.com")

	_, err = svc.EmailOf(ctx, "UBOT")
	gt.Error(t, err).Is(slack.ErrUserNotFound)

	_, err = svc.EmailOf(ctx, "U404")
	gt.Value(t, err).NotNil()
}

func TestNotify(t *testing.T) {
	ctx := context.Background()
	svc, fake := newFakeService(t)

	msg := &model.DigestMessage{
		Recipient: "bob@example.com",
		Date:      model.Date("2026-03-10"),
		Sections: map[types.NotificationKind][]model.TaskRef{
			types.NotificationDueToday: {{ID: "t1", Slug: "CYCLETASK-1", Title: "Collect evidence", DueDate: "2026-03-10"}},
		},
	}
	gt.NoError(t, svc.Notify(ctx, msg)).Required()
	gt.Array(t, fake.posted).Length(1).Required()
	gt.String(t, fake.posted[0]).Contains("D999:Your grcbook digest for 03/10/2026: 1 item(s)")

	t.Run("unknown recipient", func(t *testing.T) {
		err := svc.Notify(ctx, &model.DigestMessage{Recipient: "nobody@example.com"})
		gt.Error(t, err).Is(slack.ErrUserNotFound)
	})
}

func TestIntegration(t *testing.T) {
	token := os.Getenv("TEST_SLACK_BOT_TOKEN")
	email := os.Getenv("TEST_SLACK_USER_EMAIL")
	if token == "" || email == "" {
		t.Skip("TEST_SLACK_BOT_TOKEN or TEST_SLACK_USER_EMAIL is not set")
	}

	svc, err := slack.New(token)
	gt.NoError(t, err).Required()

	p, err := svc.LookupByEmail(context.Background(), email)
	gt.NoError(t, err).Required()
	gt.Value(t, p).NotNil().Required()
	gt.Bool(t, strings.EqualFold(p.Email, email)).True()
}
