// Package slacksocket provides a streaming interface to the Slack Real Time
// Messaging API: one background listener feeds a thread-safe queue, and
// callers pull events with blocking, type-filterable retrieval instead of
// wiring an event loop of their own.
package slacksocket

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/slacksocket/slacksocket/internal/queue"
	"github.com/slacksocket/slacksocket/internal/rtm"
	"github.com/slacksocket/slacksocket/internal/translate"
	"github.com/slacksocket/slacksocket/internal/webapi"
)

// Client is a live RTM session. Create one with New, pull events with
// GetEvent or Events, and release the connection with Close. A Client is not
// restartable; after Close, build a new one.
type Client struct {
	queue    *queue.Queue
	cache    *translate.Cache
	listener *rtm.Listener
	cancel   context.CancelFunc
	log      *zerolog.Logger

	team string
	self string

	mu     sync.Mutex
	state  ConnectionState
	closed bool // set only by an explicit Close
	err    error
}

// New authenticates the token, seeds the translation cache from the handshake
// snapshot, connects the websocket, and starts the background listener. It
// returns once events are flowing or with the bootstrap failure.
func New(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("slacksocket: token must not be empty")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		queue: queue.New(),
		cache: translate.NewCache(),
		log:   o.logger,
		state: StateConnecting,
	}

	api := webapi.New(token, o.apiBaseURL, o.httpClient, o.logger)

	session, err := api.BootstrapSession(ctx)
	if err != nil {
		c.setState(StateDisconnected)
		return nil, fmt.Errorf("slacksocket: bootstrap: %w", err)
	}
	c.team = session.TeamName
	c.self = session.SelfName
	c.cache.Seed(translate.NamespaceUser, session.Users)
	c.cache.Seed(translate.NamespaceChannel, session.Channels)

	var translator *translate.Translator
	if o.translate {
		translator = translate.New(c.cache, api, o.logger)
	}

	c.listener = rtm.NewListener(rtm.Config{
		Queue:       c.queue,
		Translator:  translator,
		Filters:     o.eventTypes,
		Logger:      o.logger,
		OnTerminate: c.onListenerExit,
	})

	if err := c.listener.Connect(ctx, session.URL); err != nil {
		c.setState(StateDisconnected)
		return nil, fmt.Errorf("slacksocket: connect: %w", err)
	}

	// The listener outlives the constructor's ctx; its lifetime is bound to
	// Close instead.
	listenCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.listener.Run(listenCtx)

	c.setState(StateConnected)
	return c, nil
}

// GetEvent blocks until an event matching one of the given types is
// available and returns it, removing it from the queue. Events that do not
// match stay queued for calls with other filters. With no types (or TypeAll)
// it returns the oldest event of any type. Context expiry returns ctx.Err()
// and leaves the queue untouched; a closed client returns ErrClosed.
func (c *Client) GetEvent(ctx context.Context, types ...string) (*Event, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	ev, err := c.queue.PopMatching(ctx, types...)
	if err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, err
	}
	return ev, nil
}

// Events returns a channel streaming every event until the client closes or
// ctx ends. The channel is closed on termination.
func (c *Client) Events(ctx context.Context) <-chan *Event {
	out := make(chan *Event)
	go func() {
		defer close(out)
		for {
			ev, err := c.GetEvent(ctx)
			if err != nil {
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Close tears down the listener and wakes every blocked GetEvent call with
// ErrClosed. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.state == StateConnecting || c.state == StateConnected {
		c.state = StateClosing
	}
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	if c.listener != nil {
		c.listener.Stop()
	}
	c.queue.Close()
	c.setState(StateClosed)
	c.log.Info().Msg("client closed")
	return nil
}

// State reports where the client is on its one-way lifecycle path.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the terminal listener error, if the connection was lost rather
// than closed deliberately.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Team returns the workspace name captured at bootstrap.
func (c *Client) Team() string { return c.team }

// Self returns the authenticated user's name captured at bootstrap.
func (c *Client) Self() string { return c.self }

// onListenerExit runs once when the read loop stops. The listener has
// already closed the queue at this point.
func (c *Client) onListenerExit(err error) {
	c.mu.Lock()
	if err != nil && c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
	c.setState(StateClosed)
}

// setState advances the lifecycle, never backwards.
func (c *Client) setState(s ConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s > c.state || (s == StateDisconnected && c.state == StateConnecting) {
		c.state = s
	}
}
