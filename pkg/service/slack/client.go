package slack

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
	"github.com/slack-go/slack"
)

const (
	// DefaultCacheTTL is the default TTL of the e-mail lookup cache
	DefaultCacheTTL = 10 * time.Minute

	errUsersNotFound = "users_not_found"
)

var ErrUserNotFound = goerr.New("slack user not found")

// cacheEntry holds a looked up user with expiration. A nil user records a miss.
type cacheEntry struct {
	user      *User
	expiresAt time.Time
}

// client implements Service interface
type client struct {
	api      *slack.Client
	cacheTTL time.Duration
	appURL   string
	apiURL   string

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// Option is a functional option for client configuration
type Option func(*client)

// WithCacheTTL sets the TTL of the e-mail lookup cache
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *client) {
		c.cacheTTL = ttl
	}
}

// WithAppURL sets the base URL used to link records from digest messages
func WithAppURL(url string) Option {
	return func(c *client) {
		c.appURL = url
	}
}

// WithAPIURL points the client at another Slack API endpoint
func WithAPIURL(url string) Option {
	return func(c *client) {
		c.apiURL = url
	}
}

// New creates a new Slack service with the provided bot token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}

	c := &client{
		cacheTTL: DefaultCacheTTL,
		cache:    make(map[string]cacheEntry),
	}

	for _, opt := range opts {
		opt(c)
	}

	var slackOpts []slack.Option
	if c.apiURL != "" {
		slackOpts = append(slackOpts, slack.OptionAPIURL(c.apiURL))
	}
	c.api = slack.New(token, slackOpts...)

	return c, nil
}

func (c *client) lookupUser(ctx context.Context, email string) (*User, error) {
	email = model.NormalizeEmail(email)
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.cache[email]
	c.mu.RUnlock()
	if ok && entry.expiresAt.After(now) {
		return entry.user, nil
	}

	u, err := c.api.GetUserByEmailContext(ctx, email)
	var found *User
	switch {
	case err == nil:
		found = &User{
			ID:       u.ID,
			Name:     u.Name,
			RealName: u.RealName,
			Email:    model.NormalizeEmail(u.Profile.Email),
		}
		if found.Email == "" {
			found.Email = email
		}
	case isUserNotFound(err):
		found = nil
	default:
		return nil, goerr.Wrap(err, "failed to look up user by email", goerr.V("email", email))
	}

	c.mu.Lock()
	c.cache[email] = cacheEntry{user: found, expiresAt: now.Add(c.cacheTTL)}
	c.mu.Unlock()
	return found, nil
}

func isUserNotFound(err error) bool {
	var resp slack.SlackErrorResponse
	if errors.As(err, &resp) {
		return resp.Err == errUsersNotFound
	}
	return err.Error() == errUsersNotFound
}

// LookupByEmail implements interfaces.PersonDirectory
func (c *client) LookupByEmail(ctx context.Context, email string) (*model.Person, error) {
	u, err := c.lookupUser(ctx, email)
	if err != nil || u == nil {
		return nil, err
	}

	name := u.RealName
	if name == "" {
		name = u.Name
	}
	return &model.Person{
		Email: u.Email,
		Name:  name,
	}, nil
}

// EmailOf resolves the profile e-mail of a slash command caller
func (c *client) EmailOf(ctx context.Context, userID string) (string, error) {
	u, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return "", goerr.Wrap(err, "failed to get user info", goerr.V("user_id", userID))
	}
	email := model.NormalizeEmail(u.Profile.Email)
	if email == "" {
		return "", goerr.Wrap(ErrUserNotFound, "user has no e-mail address", goerr.V("user_id", userID))
	}
	return email, nil
}

// Notify implements interfaces.Notifier. The digest is posted to the
// recipient's direct message channel.
func (c *client) Notify(ctx context.Context, msg *model.DigestMessage) error {
	u, err := c.lookupUser(ctx, msg.Recipient)
	if err != nil {
		return err
	}
	if u == nil {
		return goerr.Wrap(ErrUserNotFound, "cannot deliver digest", goerr.V("recipient", msg.Recipient))
	}

	channel, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{u.ID},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to open direct message", goerr.V("user_id", u.ID))
	}

	blocks, text := BuildDigestBlocks(msg, c.appURL)
	_, ts, err := c.api.PostMessageContext(ctx, channel.ID,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post digest", goerr.V("channel_id", channel.ID))
	}

	logging.From(ctx).Debug("digest posted to slack", "recipient", msg.Recipient, "ts", ts)
	return nil
}
