package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/slack-thread-relay/internal/classify"
	"github.com/tjfontaine/slack-thread-relay/internal/event"
)

// Opener performs the connection handshake and yields a fresh stream URL.
type Opener interface {
	OpenConnection(ctx context.Context) (string, error)
}

// Reactor handles one classified thread reference.
type Reactor interface {
	React(ctx context.Context, ref classify.ThreadRef) error
}

// Status is a snapshot of the supervisor for the ops surface.
type Status struct {
	Connected   bool      `json:"connected"`
	ConnID      string    `json:"conn_id,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
	Envelopes   uint64    `json:"envelopes"`
	Reconnects  uint64    `json:"reconnects"`
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithDialer replaces the WebSocket dialer. Used by tests.
func WithDialer(d Dialer) Option {
	return func(s *Supervisor) { s.dial = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Supervisor) { s.tracer = tracer }
}

// Supervisor owns the duplex stream. It handshakes, runs the receive
// loop, acknowledges envelopes, and re-handshakes whenever the stream
// ends. Exactly one connection handle is live at a time and it is
// replaced, never mutated, on reconnect.
type Supervisor struct {
	opener  Opener
	reactor Reactor
	dial    Dialer
	logger  *slog.Logger
	tracer  trace.Tracer

	mu     sync.Mutex
	status Status
}

func New(opener Opener, reactor Reactor, opts ...Option) *Supervisor {
	s := &Supervisor{
		opener:  opener,
		reactor: reactor,
		dial:    DialWebSocket,
		logger:  slog.Default(),
		tracer:  otel.Tracer("slack-thread-relay/socket"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status returns a snapshot of the connection state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Run drives the connection state machine until a fatal error or context
// cancellation. Handshake failures are fatal, as are errors raised while
// dispatching a frame; a closed or broken stream triggers a fresh
// handshake instead.
func (s *Supervisor) Run(ctx context.Context) error {
	conn, logger, err := s.connect(ctx)
	if err != nil {
		return err
	}
	for {
		err := s.serve(ctx, conn, logger)
		s.disconnected()
		if closeErr := conn.Close(); closeErr != nil {
			logger.Debug("closing stream", slog.String("error", closeErr.Error()))
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.Info("reconnecting")
		conn, logger, err = s.connect(ctx)
		if err != nil {
			return err
		}
	}
}

// connect performs the handshake and opens a new stream. The returned
// logger carries the new connection epoch's id.
func (s *Supervisor) connect(ctx context.Context) (Conn, *slog.Logger, error) {
	url, err := s.opener.OpenConnection(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open connection: %w", err)
	}

	connID := uuid.NewString()
	logger := s.logger.With(slog.String("conn_id", connID))
	logger.Info("opening event stream", slog.String("url", url))

	conn, err := s.dial(ctx, url+"&debug_reconnects=true")
	if err != nil {
		return nil, nil, fmt.Errorf("dial event stream: %w", err)
	}
	s.connected(connID)
	logger.Info("connected to event stream")
	return conn, logger, nil
}

// serve is the inner receive loop for one connection epoch. It returns
// nil when the stream ended and a reconnect should follow, and an error
// when dispatch failed fatally.
func (s *Supervisor) serve(ctx context.Context, conn Conn, logger *slog.Logger) error {
	// A canceled context closes the stream so the blocking read returns.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("event stream ended")
			} else {
				logger.Warn("event stream read failed", slog.String("error", err.Error()))
			}
			return nil
		}

		switch frame.Type {
		case FramePing:
			logger.Debug("replying with pong", slog.Int("bytes", len(frame.Data)))
			if err := conn.WriteFrame(Frame{Type: FramePong, Data: frame.Data}); err != nil {
				return fmt.Errorf("write pong: %w", err)
			}
		case FramePong:
			logger.Debug("received pong", slog.Int("bytes", len(frame.Data)))
		case FrameBinary:
			logger.Info("ignoring binary frame", slog.Int("bytes", len(frame.Data)))
		case FrameClose:
			logger.Info("received close frame", slog.String("reason", string(frame.Data)))
			return nil
		case FrameText:
			disconnect, err := s.dispatch(ctx, conn, logger, frame.Data)
			if err != nil {
				return err
			}
			if disconnect {
				logger.Info("disconnect requested")
				return nil
			}
		}
	}
}

// dispatch decodes one text frame and runs the decode → classify → react
// chain. It reports whether a graceful disconnect was requested.
func (s *Supervisor) dispatch(ctx context.Context, conn Conn, logger *slog.Logger, data []byte) (disconnect bool, err error) {
	in, err := event.DecodeInbound(data)
	if err != nil {
		return false, err
	}
	switch in.Kind {
	case event.KindHello:
		logger.Info("hello received", slog.String("app_id", in.Hello.ConnectionInfo.AppID))
		return false, nil
	case event.KindDisconnect:
		return true, nil
	case event.KindEventsAPI:
		return false, s.dispatchEnvelope(ctx, conn, logger, in.Envelope)
	}
	return false, nil
}

type acknowledgment struct {
	EnvelopeID string `json:"envelope_id"`
}

// dispatchEnvelope handles one events_api envelope. The acknowledgment is
// sent exactly once per envelope, whether or not the reaction matched or
// succeeded: it signals "frame received", not "reaction succeeded". A
// reaction failure still propagates after the acknowledgment is written.
func (s *Supervisor) dispatchEnvelope(ctx context.Context, conn Conn, logger *slog.Logger, env *event.Envelope) error {
	ctx, span := s.tracer.Start(ctx, "envelope",
		trace.WithAttributes(attribute.String("envelope_id", env.EnvelopeID)))
	defer span.End()

	logger = logger.With(slog.String("envelope_id", env.EnvelopeID))
	s.countEnvelope()

	payload, err := event.DecodePayload(env.Payload)
	if err != nil {
		return err
	}

	var reactErr error
	if ref, ok := classify.ThreadedReply(logger, payload); ok {
		if payload.Callback != nil {
			span.SetAttributes(attribute.String("event_id", payload.Callback.EventID))
		}
		reactErr = s.reactor.React(ctx, ref)
	}

	ack, err := json.Marshal(acknowledgment{EnvelopeID: env.EnvelopeID})
	if err != nil {
		return fmt.Errorf("marshal acknowledgment: %w", err)
	}
	logger.Info("acknowledging envelope")
	if err := conn.WriteFrame(Frame{Type: FrameText, Data: ack}); err != nil {
		return fmt.Errorf("write acknowledgment: %w", err)
	}

	if reactErr != nil {
		span.RecordError(reactErr)
		return reactErr
	}
	return nil
}

func (s *Supervisor) connected(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.ConnID != "" {
		s.status.Reconnects++
	}
	s.status.Connected = true
	s.status.ConnID = connID
	s.status.ConnectedAt = time.Now()
}

func (s *Supervisor) disconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Connected = false
}

func (s *Supervisor) countEnvelope() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Envelopes++
}
