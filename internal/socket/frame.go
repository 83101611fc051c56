// Package socket owns the Socket Mode connection lifecycle: the duplex
// stream, the receive loop, and reconnection.
package socket

import "context"

// FrameType enumerates the duplex stream frame kinds.
type FrameType int

const (
	FrameText FrameType = iota
	FrameBinary
	FramePing
	FramePong
	FrameClose
)

func (t FrameType) String() string {
	switch t {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	case FramePing:
		return "ping"
	case FramePong:
		return "pong"
	case FrameClose:
		return "close"
	}
	return "unknown"
}

// Frame is one discrete unit of the stream protocol.
type Frame struct {
	Type FrameType
	Data []byte
}

// Conn is one connection epoch of the duplex stream. The supervisor is
// the only user: frames are read and written from a single sequential
// loop, and the handle is replaced, never reused, across reconnects.
type Conn interface {
	// ReadFrame blocks for the next inbound frame. It returns io.EOF
	// after a clean shutdown and the transport error otherwise.
	ReadFrame() (Frame, error)
	WriteFrame(Frame) error
	Close() error
}

// Dialer opens a Conn against a handshake-provided URL.
type Dialer func(ctx context.Context, url string) (Conn, error)
