package slacksocket

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/slacksocket/slacksocket/internal/log"
)

type options struct {
	translate  bool
	logger     *zerolog.Logger
	httpClient *http.Client
	apiBaseURL string
	eventTypes []string
}

func defaultOptions() options {
	return options{
		translate: true,
		logger:    log.Disabled(),
	}
}

// Option configures a Client at construction time.
type Option func(*options)

// WithTranslation toggles identifier translation. Enabled by default; when
// disabled, payloads pass through byte-for-byte.
func WithTranslation(enabled bool) Option {
	return func(o *options) { o.translate = enabled }
}

// WithLogger injects a logger. The default discards everything.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHTTPClient overrides the HTTP client used for Web API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithAPIBaseURL overrides the Web API root. Intended for tests and
// enterprise gateways.
func WithAPIBaseURL(baseURL string) Option {
	return func(o *options) { o.apiBaseURL = baseURL }
}

// WithEventTypes restricts the stream to the given event types. Non-matching
// events are dropped before they reach the queue. The default is all types.
func WithEventTypes(types ...string) Option {
	return func(o *options) { o.eventTypes = types }
}
