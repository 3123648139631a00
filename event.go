package slacksocket

import "github.com/slacksocket/slacksocket/internal/event"

// Event is one message received from the RTM stream. Type is the Slack event
// category, Time the local receipt time in epoch seconds, and Raw the full
// payload (translated or verbatim per client configuration).
type Event = event.Event

// TypeAll matches every event type when passed to GetEvent.
const TypeAll = event.TypeAll
