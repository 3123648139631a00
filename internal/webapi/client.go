// Package webapi is the minimal Slack Web API surface the client consumes:
// the rtm.start handshake and the single-identifier lookup calls used for
// lazy translation.
package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/slacksocket/slacksocket/internal/translate"
)

// DefaultBaseURL is the production Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

// AuthError reports that the backend rejected the token. It is terminal for
// the session; retrying with the same credential will not help.
type AuthError struct {
	Code string
}

func (e *AuthError) Error() string {
	return "slack authentication failed: " + e.Code
}

// APIError is a non-auth failure reported by the Web API (ok=false).
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack api %s: %s", e.Method, e.Code)
}

// authFailureCodes are the ok=false error codes that mean the credential
// itself is bad, per the Slack Web API docs.
var authFailureCodes = map[string]struct{}{
	"not_authed":       {},
	"invalid_auth":     {},
	"account_inactive": {},
	"token_revoked":    {},
	"token_expired":    {},
}

// Client talks to the Slack Web API with a fixed token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zerolog.Logger
}

// New builds a Web API client. baseURL and httpClient may be zero-valued to
// get production defaults; tests point baseURL at an httptest server.
func New(token, baseURL string, httpClient *http.Client, logger *zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
		log:     logger,
	}
}

// BootstrapSession performs the rtm.start handshake: one synchronous call
// that authenticates the token and returns the socket URL together with the
// identifier snapshot used to seed the translation cache.
func (c *Client) BootstrapSession(ctx context.Context) (*Session, error) {
	var resp rtmStartResponse
	if err := c.call(ctx, "rtm.start", nil, &resp); err != nil {
		return nil, err
	}

	session := &Session{
		URL:      resp.URL,
		SelfName: resp.Self.Name,
		TeamName: resp.Team.Name,
		Users:    make(map[string]string, len(resp.Users)+len(resp.Bots)),
		Channels: make(map[string]string, len(resp.Channels)+len(resp.Groups)+len(resp.IMs)),
	}
	for _, u := range resp.Users {
		session.Users[u.ID] = u.Name
	}
	for _, b := range resp.Bots {
		session.Users[b.ID] = b.Name
	}
	for _, ch := range resp.Channels {
		session.Channels[ch.ID] = ch.Name
	}
	for _, g := range resp.Groups {
		session.Channels[g.ID] = g.Name
	}
	for _, im := range resp.IMs {
		if name, ok := session.Users[im.User]; ok {
			session.Channels[im.ID] = name
		}
	}

	c.log.Debug().
		Str("team", session.TeamName).
		Int("users", len(session.Users)).
		Int("channels", len(session.Channels)).
		Msg("session bootstrapped")

	return session, nil
}

// Resolve fetches the display name for a single unknown identifier. It
// implements translate.Resolver. An IM conversation resolves to the peer
// user's name.
func (c *Client) Resolve(ctx context.Context, ns translate.Namespace, id string) (string, error) {
	switch ns {
	case translate.NamespaceUser:
		return c.resolveUser(ctx, id)
	case translate.NamespaceChannel:
		return c.resolveChannel(ctx, id)
	default:
		return "", fmt.Errorf("unknown namespace %q", ns)
	}
}

func (c *Client) resolveUser(ctx context.Context, id string) (string, error) {
	var resp userInfoResponse
	if err := c.call(ctx, "users.info", url.Values{"user": {id}}, &resp); err != nil {
		return "", err
	}
	return resp.User.Name, nil
}

func (c *Client) resolveChannel(ctx context.Context, id string) (string, error) {
	var resp channelInfoResponse
	if err := c.call(ctx, "conversations.info", url.Values{"channel": {id}}, &resp); err != nil {
		return "", err
	}
	if resp.Channel.IsIM {
		return c.resolveUser(ctx, resp.Channel.User)
	}
	return resp.Channel.Name, nil
}

// call performs one GET against a Web API method and decodes the response,
// mapping ok=false onto AuthError or APIError.
func (c *Client) call(ctx context.Context, method string, params url.Values, out interface {
	envelope() apiEnvelope
}) error {
	endpoint := c.baseURL + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Method: method, Code: fmt.Sprintf("http status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}

	env := out.envelope()
	if !env.OK {
		if _, ok := authFailureCodes[env.Error]; ok {
			return &AuthError{Code: env.Error}
		}
		return &APIError{Method: method, Code: env.Error}
	}
	return nil
}

func (e apiEnvelope) envelope() apiEnvelope { return e }
