// Package react performs the follow-up call sequence for a threaded
// reply: resolve the reply's permalink, then post it back into the
// channel.
package react

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tjfontaine/slack-thread-relay/internal/classify"
)

// API is the slice of the Slack Web API the sequencer depends on.
type API interface {
	GetPermalink(ctx context.Context, channel, messageTS string) (string, error)
	PostMessage(ctx context.Context, channel, text string) (string, error)
}

// ReactionError marks a reaction that failed at one of its two steps.
// The failure is terminal for the event; neither step is retried.
type ReactionError struct {
	Step string
	Err  error
}

func (e *ReactionError) Error() string {
	return fmt.Sprintf("reaction step %s: %v", e.Step, e.Err)
}

func (e *ReactionError) Unwrap() error { return e.Err }

// Sequencer issues the two dependent Web API calls for one thread
// reference.
type Sequencer struct {
	api    API
	logger *slog.Logger
}

func NewSequencer(api API, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{api: api, logger: logger}
}

// React resolves the permalink for ref and posts it back into the same
// channel. Each step is called at most once; a failed first step aborts
// the second.
func (s *Sequencer) React(ctx context.Context, ref classify.ThreadRef) error {
	permalink, err := s.api.GetPermalink(ctx, ref.Channel, ref.TS)
	if err != nil {
		return &ReactionError{Step: "chat.getPermalink", Err: err}
	}
	s.logger.Info("resolved permalink",
		slog.String("channel", ref.Channel),
		slog.String("permalink", permalink),
	)

	ts, err := s.api.PostMessage(ctx, ref.Channel, permalink)
	if err != nil {
		return &ReactionError{Step: "chat.postMessage", Err: err}
	}
	s.logger.Info("posted permalink", slog.String("ts", ts))
	return nil
}
