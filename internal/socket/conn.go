package socket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const controlWriteTimeout = 10 * time.Second

// wsConn adapts a gorilla websocket connection to the Conn interface. A
// single reader goroutine pumps data and control frames into a channel so
// pings surface to the supervisor as ordinary frames instead of being
// answered behind its back.
type wsConn struct {
	ws     *websocket.Conn
	frames chan Frame

	readErr error // set before frames is closed

	closeOnce sync.Once
	done      chan struct{}
}

// DialWebSocket opens a WebSocket connection. It is the default Dialer.
func DialWebSocket(ctx context.Context, rawURL string) (Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}
	c := &wsConn{
		ws:     ws,
		frames: make(chan Frame, 16),
		done:   make(chan struct{}),
	}
	ws.SetPingHandler(func(appData string) error {
		c.deliver(Frame{Type: FramePing, Data: []byte(appData)})
		return nil
	})
	ws.SetPongHandler(func(appData string) error {
		c.deliver(Frame{Type: FramePong, Data: []byte(appData)})
		return nil
	})
	go c.readLoop()
	return c, nil
}

func (c *wsConn) deliver(f Frame) {
	select {
	case c.frames <- f:
	case <-c.done:
	}
}

func (c *wsConn) readLoop() {
	defer close(c.frames)
	for {
		t, data, err := c.ws.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				c.deliver(Frame{Type: FrameClose, Data: []byte(ce.Text)})
				return
			}
			c.readErr = err
			return
		}
		switch t {
		case websocket.TextMessage:
			c.deliver(Frame{Type: FrameText, Data: data})
		case websocket.BinaryMessage:
			c.deliver(Frame{Type: FrameBinary, Data: data})
		}
	}
}

func (c *wsConn) ReadFrame() (Frame, error) {
	f, ok := <-c.frames
	if !ok {
		if c.readErr != nil {
			return Frame{}, c.readErr
		}
		return Frame{}, io.EOF
	}
	return f, nil
}

func (c *wsConn) WriteFrame(f Frame) error {
	deadline := time.Now().Add(controlWriteTimeout)
	switch f.Type {
	case FrameText:
		return c.ws.WriteMessage(websocket.TextMessage, f.Data)
	case FrameBinary:
		return c.ws.WriteMessage(websocket.BinaryMessage, f.Data)
	case FramePing:
		return c.ws.WriteControl(websocket.PingMessage, f.Data, deadline)
	case FramePong:
		return c.ws.WriteControl(websocket.PongMessage, f.Data, deadline)
	case FrameClose:
		data := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		return c.ws.WriteControl(websocket.CloseMessage, data, deadline)
	}
	return fmt.Errorf("unsupported frame type %v", f.Type)
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.ws.Close()
}
