package classify

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/tjfontaine/slack-thread-relay/internal/event"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// loadFixture decodes a captured Socket Mode frame down to its events_api
// payload.
func loadFixture(t *testing.T, name string) *event.Payload {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	in, err := event.DecodeInbound(data)
	if err != nil {
		t.Fatalf("decode fixture frame: %v", err)
	}
	if in.Kind != event.KindEventsAPI {
		t.Fatalf("fixture frame kind = %v, want %v", in.Kind, event.KindEventsAPI)
	}
	p, err := event.DecodePayload(in.Envelope.Payload)
	if err != nil {
		t.Fatalf("decode fixture payload: %v", err)
	}
	return p
}

func TestThreadedReply_Fixtures(t *testing.T) {
	tests := []struct {
		fixture string
		want    ThreadRef
		wantOK  bool
	}{
		{fixture: "plain_message.json", wantOK: false},
		{
			fixture: "threaded_message.json",
			want:    ThreadRef{Channel: "C03387UAMQR", TS: "1644939337.956639"},
			wantOK:  true,
		},
		{fixture: "threaded_message_changed.json", wantOK: false},
		{fixture: "broadcasted_threaded_message.json", wantOK: false},
		{
			fixture: "threaded_file_upload.json",
			want:    ThreadRef{Channel: "C03387UAMQR", TS: "1644940789.277819"},
			wantOK:  true,
		},
		{fixture: "broadcasted_threaded_file_upload.json", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			ref, ok := ThreadedReply(discard(), loadFixture(t, tt.fixture))
			if ok != tt.wantOK {
				t.Fatalf("ThreadedReply() ok = %v, want %v", ok, tt.wantOK)
			}
			if ref != tt.want {
				t.Errorf("ThreadedReply() = %+v, want %+v", ref, tt.want)
			}
		})
	}
}

func TestThreadedReply(t *testing.T) {
	payload := func(t *testing.T, eventJSON string) *event.Payload {
		t.Helper()
		p, err := event.DecodePayload([]byte(`{"type":"event_callback","event_id":"Ev1","event":` + eventJSON + `}`))
		if err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		return p
	}

	tests := []struct {
		name  string
		event string
		want  ThreadRef
		ok    bool
	}{
		{
			name:  "threaded plain message uses its own ts",
			event: `{"type":"message","channel":"C1","ts":"1.1","thread_ts":"0.1"}`,
			want:  ThreadRef{Channel: "C1", TS: "1.1"},
			ok:    true,
		},
		{
			name:  "plain message without thread_ts",
			event: `{"type":"message","channel":"C1","ts":"1.1"}`,
		},
		{
			name:  "threaded file_share uses its own ts",
			event: `{"type":"message","subtype":"file_share","channel":"C1","ts":"2.2","thread_ts":"0.1"}`,
			want:  ThreadRef{Channel: "C1", TS: "2.2"},
			ok:    true,
		},
		{
			name:  "file_share without thread_ts",
			event: `{"type":"message","subtype":"file_share","channel":"C1","ts":"2.2"}`,
		},
		{
			name:  "other subtype ignored even when threaded",
			event: `{"type":"message","subtype":"message_changed","channel":"C1","ts":"1.1","thread_ts":"0.1"}`,
		},
		{
			name:  "non-message callback event",
			event: `{"type":"reaction_added","item":{"channel":"C1"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := payload(t, tt.event)
			ref, ok := ThreadedReply(discard(), p)
			if ok != tt.ok {
				t.Fatalf("ThreadedReply() ok = %v, want %v", ok, tt.ok)
			}
			if ref != tt.want {
				t.Errorf("ThreadedReply() = %+v, want %+v", ref, tt.want)
			}

			// Pure function: a second call on the same input agrees.
			ref2, ok2 := ThreadedReply(discard(), p)
			if ref2 != ref || ok2 != ok {
				t.Errorf("repeated call diverged: (%+v, %v) vs (%+v, %v)", ref2, ok2, ref, ok)
			}
		})
	}

	t.Run("non event_callback payload", func(t *testing.T) {
		p, err := event.DecodePayload([]byte(`{"type":"interactive"}`))
		if err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if _, ok := ThreadedReply(discard(), p); ok {
			t.Error("ThreadedReply() matched a non event_callback payload")
		}
	})
}
