package webapi

// apiEnvelope is the part of every Web API response that signals success.
type apiEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// identity is a named entity as returned by the Web API (user, bot, team).
type identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// channelInfo describes a conversation. For IM conversations IsIM is set and
// User holds the peer's user id.
type channelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	IsIM bool   `json:"is_im"`
	User string `json:"user"`
}

// rtmStartResponse is the handshake payload: the socket URL plus the
// identifier snapshot for the whole workspace.
type rtmStartResponse struct {
	apiEnvelope
	URL      string        `json:"url"`
	Self     identity      `json:"self"`
	Team     identity      `json:"team"`
	Users    []identity    `json:"users"`
	Channels []channelInfo `json:"channels"`
	Groups   []channelInfo `json:"groups"`
	IMs      []channelInfo `json:"ims"`
	Bots     []identity    `json:"bots"`
}

type userInfoResponse struct {
	apiEnvelope
	User identity `json:"user"`
}

type channelInfoResponse struct {
	apiEnvelope
	Channel channelInfo `json:"channel"`
}

// Session is the result of a successful handshake.
type Session struct {
	// URL is the websocket endpoint to dial.
	URL string
	// SelfName and TeamName identify who the token authenticated as.
	SelfName string
	TeamName string
	// Users maps user and bot ids to display names.
	Users map[string]string
	// Channels maps channel, group, and IM ids to display names. IM ids map
	// to the peer user's name.
	Channels map[string]string
}
