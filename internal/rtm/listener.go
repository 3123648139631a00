// Package rtm owns the live RTM websocket: dialing, the continuous read loop,
// and terminal shutdown of the event queue.
package rtm

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/slacksocket/slacksocket/internal/event"
	"github.com/slacksocket/slacksocket/internal/queue"
	"github.com/slacksocket/slacksocket/internal/translate"
)

// readLimit caps a single RTM frame. Slack payloads with large attachment
// lists can pass the library's 32KiB default.
const readLimit = 1 << 20

// Listener reads frames from the RTM socket and feeds the event queue. It is
// the only component that touches the connection.
type Listener struct {
	conn       *websocket.Conn
	queue      *queue.Queue
	translator *translate.Translator // nil when translation is disabled
	filters    []string              // construction-time event type filters; empty means all
	sessionID  string
	log        *zerolog.Logger
	stopping   atomic.Bool

	// onTerminate is invoked once, after the read loop stops for any reason.
	// The error is nil for an orderly shutdown.
	onTerminate func(error)
}

// Config carries the listener's collaborators.
type Config struct {
	Queue       *queue.Queue
	Translator  *translate.Translator
	Filters     []string
	Logger      *zerolog.Logger
	OnTerminate func(error)
}

// NewListener builds a listener. Connect must be called before Run.
func NewListener(cfg Config) *Listener {
	sessionID := uuid.NewString()
	logger := cfg.Logger.With().Str("session_id", sessionID).Logger()
	return &Listener{
		queue:       cfg.Queue,
		translator:  cfg.Translator,
		filters:     cfg.Filters,
		sessionID:   sessionID,
		log:         &logger,
		onTerminate: cfg.OnTerminate,
	}
}

// SessionID returns the identifier stamped on this connection's log lines.
func (l *Listener) SessionID() string {
	return l.sessionID
}

// Connect dials the websocket endpoint obtained from the handshake.
func (l *Listener) Connect(ctx context.Context, wsURL string) error {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(readLimit)
	l.conn = conn
	l.log.Info().Msg("websocket connection established")
	return nil
}

// Run reads frames until the connection drops, Stop is called, or ctx ends.
// Malformed frames are skipped; a transport error is terminal and closes the
// event queue so blocked consumers observe the closed condition.
func (l *Listener) Run(ctx context.Context) {
	err := l.readLoop(ctx)

	if l.stopping.Load() || isOrderlyClose(ctx, err) {
		err = nil
		l.log.Info().Msg("websocket connection closed")
	} else {
		l.log.Warn().Err(err).Msg("websocket connection lost")
	}

	l.queue.Close()
	if l.onTerminate != nil {
		l.onTerminate(err)
	}
}

// Stop closes the connection, which unblocks the read loop. Safe to call
// concurrently with Run; idempotence is handled by the websocket library.
func (l *Listener) Stop() {
	l.stopping.Store(true)
	if l.conn != nil {
		_ = l.conn.Close(websocket.StatusNormalClosure, "client closed")
	}
}

func (l *Listener) readLoop(ctx context.Context) error {
	for {
		_, data, err := l.conn.Read(ctx)
		if err != nil {
			return err
		}

		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			// Bad frame; drop it and keep listening.
			l.log.Debug().Err(err).Int("bytes", len(data)).Msg("skipping undecodable frame")
			continue
		}

		eventType, _ := payload["type"].(string)
		if !l.typeAllowed(eventType) {
			l.log.Debug().Str("type", eventType).Msg("ignoring filtered event")
			continue
		}

		ev := l.buildEvent(ctx, eventType, data, payload)
		l.queue.Push(ev)
	}
}

// buildEvent translates the payload when enabled and stamps local receipt
// time. Translation failure is never fatal; the worst case is an event with
// its original identifiers intact.
func (l *Listener) buildEvent(ctx context.Context, eventType string, raw []byte, payload map[string]any) *event.Event {
	var mentions []string
	if l.translator != nil {
		mentions = l.translator.Translate(ctx, payload)
		if rewritten, err := json.Marshal(payload); err == nil {
			raw = rewritten
		} else {
			l.log.Debug().Err(err).Msg("re-encoding translated payload failed, delivering original")
		}
	} else {
		mentions = translate.ExtractMentions(payload)
	}

	return &event.Event{
		Type:     eventType,
		Time:     time.Now().UTC().Unix(),
		Raw:      raw,
		Mentions: mentions,
	}
}

func (l *Listener) typeAllowed(eventType string) bool {
	if len(l.filters) == 0 {
		return true
	}
	for _, t := range l.filters {
		if t == event.TypeAll || t == eventType {
			return true
		}
	}
	return false
}

// isOrderlyClose reports whether the read loop ended through Stop, context
// cancellation, or a clean peer close rather than a transport fault.
func isOrderlyClose(ctx context.Context, err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
