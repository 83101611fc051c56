// Package classify decides whether a decoded events_api payload denotes a
// new reply posted into a thread.
package classify

import (
	"log/slog"

	"github.com/tjfontaine/slack-thread-relay/internal/event"
)

// ThreadRef identifies one reply inside a threaded conversation. TS is the
// reply's own timestamp, not the thread root's, so downstream calls target
// the specific message.
type ThreadRef struct {
	Channel string
	TS      string
}

// ThreadedReply reports whether p describes a new threaded reply. It is a
// pure function of the payload: a reply matches when the callback event is
// a message with no subtype (or the file_share subtype) and a thread_ts.
// Every miss is logged with its reason.
func ThreadedReply(logger *slog.Logger, p *event.Payload) (ThreadRef, bool) {
	if p.Kind != event.PayloadEventCallback {
		logger.Info("ignoring payload that is not an event_callback")
		return ThreadRef{}, false
	}
	cb := p.Callback
	logger = logger.With(slog.String("event_id", cb.EventID))

	if cb.Event.Kind != event.CallbackMessage {
		logger.Info("ignoring event that is not a message")
		return ThreadRef{}, false
	}
	msg := cb.Event.Message

	switch msg.Kind {
	case event.MessagePlain, event.MessageFileShare:
	default:
		logger.Info("not a threaded reply: subtype is present")
		return ThreadRef{}, false
	}
	if msg.ThreadTS == nil {
		logger.Info("not a threaded reply: thread_ts is absent")
		return ThreadRef{}, false
	}
	return ThreadRef{Channel: msg.Channel, TS: msg.TS}, true
}
