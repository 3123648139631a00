package event

import "encoding/json"

// TypeAll matches every event type when used as a retrieval filter.
const TypeAll = "all"

// Event is one message received from the Slack RTM stream.
type Event struct {
	// Type is the Slack-defined event category ("message", "presence_change", ...).
	// Frames without a type field carry an empty Type and still flow through.
	Type string

	// Time is the local receipt time in UTC epoch seconds. It is stamped by the
	// listener, not taken from the payload, so it is non-decreasing in queue order.
	Time int64

	// Raw is the full payload, translated or verbatim depending on client
	// configuration.
	Raw json.RawMessage

	// Mentions lists the <@...> user references found in the text field, in
	// order of appearance. Translated to display names when translation is on.
	Mentions []string
}

// JSON returns the payload as a string.
func (e *Event) JSON() string {
	return string(e.Raw)
}

// Matches reports whether the event passes the given type filter. An empty
// filter or TypeAll matches everything.
func (e *Event) Matches(types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == TypeAll || t == e.Type {
			return true
		}
	}
	return false
}
