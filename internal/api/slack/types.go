package slack

// Responses from the Slack Web API. Every method shares the ok/error
// convention: ok:false means the call failed and the interesting fields
// are absent. Field names are part of the wire contract.

// ConnectionsOpenResponse is returned by apps.connections.open.
type ConnectionsOpenResponse struct {
	OK    bool   `json:"ok"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

// PermalinkResponse is returned by chat.getPermalink.
type PermalinkResponse struct {
	OK        bool   `json:"ok"`
	Permalink string `json:"permalink"`
	Channel   string `json:"channel"`
	Error     string `json:"error"`
}

// PostMessageResponse is returned by chat.postMessage.
type PostMessageResponse struct {
	OK      bool   `json:"ok"`
	TS      string `json:"ts"`
	Channel string `json:"channel"`
	Error   string `json:"error"`
}

type postMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}
