package sse

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Stream couples one SSE client with its gin request context
type Stream struct {
	client     *Client
	ctx        *gin.Context
	hub        *Hub
	topic      string
	bufferSize int
	heartbeat  time.Duration

	onConnect    func(*Stream)
	onDisconnect func()
	onError      func(error)

	closed     atomic.Bool
	cancelFunc context.CancelFunc
}

// StreamBuilder configures a Stream before it starts
type StreamBuilder struct {
	ginCtx       *gin.Context
	hub          *Hub
	topic        string
	bufferSize   int
	heartbeat    time.Duration
	onConnect    func(*Stream)
	onDisconnect func()
	onError      func(error)
}

// NewStream creates a Stream builder with default buffer and heartbeat
func NewStream(c *gin.Context, hub *Hub) *StreamBuilder {
	return &StreamBuilder{
		ginCtx:     c,
		hub:        hub,
		bufferSize: 16,
		heartbeat:  30 * time.Second,
	}
}

// WithTopic restricts the stream to a single topic (empty means all)
func (b *StreamBuilder) WithTopic(topic string) *StreamBuilder {
	b.topic = topic
	return b
}

// WithBufferSize sets the channel buffer size
func (b *StreamBuilder) WithBufferSize(size int) *StreamBuilder {
	b.bufferSize = size
	return b
}

// WithHeartbeat sets the heartbeat interval (0 disables it)
func (b *StreamBuilder) WithHeartbeat(interval time.Duration) *StreamBuilder {
	b.heartbeat = interval
	return b
}

// OnConnect registers a hook called once the client is registered.
// The hook may use Send to push a bootstrap snapshot.
func (b *StreamBuilder) OnConnect(fn func(*Stream)) *StreamBuilder {
	b.onConnect = fn
	return b
}

// OnDisconnect registers a hook called when the stream closes
func (b *StreamBuilder) OnDisconnect(fn func()) *StreamBuilder {
	b.onDisconnect = fn
	return b
}

// OnError registers an error hook
func (b *StreamBuilder) OnError(fn func(error)) *StreamBuilder {
	b.onError = fn
	return b
}

// Build constructs the Stream
func (b *StreamBuilder) Build() *Stream {
	client := &Client{
		ID:      uuid.New().String(),
		Channel: make(chan Event, b.bufferSize),
		Topic:   b.topic,
	}

	return &Stream{
		client:       client,
		ctx:          b.ginCtx,
		hub:          b.hub,
		topic:        b.topic,
		bufferSize:   b.bufferSize,
		heartbeat:    b.heartbeat,
		onConnect:    b.onConnect,
		onDisconnect: b.onDisconnect,
		onError:      b.onError,
	}
}

// Send queues an event for this client only
func (s *Stream) Send(eventType string, data interface{}) error {
	if s.closed.Load() {
		return fmt.Errorf("stream closed")
	}

	select {
	case s.client.Channel <- Event{Type: eventType, Data: data}:
		return nil
	default:
		err := fmt.Errorf("stream buffer full, event dropped: %s", eventType)
		if s.onError != nil {
			s.onError(err)
		}
		return err
	}
}

// Close shuts the stream down (idempotent)
func (s *Stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.hub.Unregister(s.client)

	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	if s.onDisconnect != nil {
		s.onDisconnect()
	}

	return nil
}

// StartStreaming writes events to the response until the client goes away
func (s *Stream) StartStreaming() {
	s.ctx.Header("Content-Type", "text/event-stream")
	s.ctx.Header("Cache-Control", "no-cache")
	s.ctx.Header("Connection", "keep-alive")
	s.ctx.Header("X-Accel-Buffering", "no")

	s.hub.Register(s.client)
	defer s.Close()

	connected := Event{
		Type: "connected",
		Data: map[string]string{
			"client_id": s.client.ID,
			"topic":     s.client.Topic,
		},
	}
	if _, err := fmt.Fprint(s.ctx.Writer, connected.FormatSSE()); err != nil {
		if s.onError != nil {
			s.onError(err)
		}
		return
	}
	s.ctx.Writer.Flush()

	// Bootstrap hook runs after registration so no event published
	// from this point on can be missed.
	if s.onConnect != nil {
		s.onConnect(s)
	}

	if s.heartbeat > 0 {
		var heartbeatCtx context.Context
		heartbeatCtx, s.cancelFunc = context.WithCancel(context.Background())
		go s.startHeartbeat(heartbeatCtx)
	}

	clientGone := s.ctx.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return

		case event, ok := <-s.client.Channel:
			if !ok {
				return
			}

			if _, err := fmt.Fprint(s.ctx.Writer, event.FormatSSE()); err != nil {
				if s.onError != nil {
					s.onError(err)
				}
				return
			}
			s.ctx.Writer.Flush()
		}
	}
}

// startHeartbeat emits SSE comments to keep intermediaries from timing out
func (s *Stream) startHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprintf(s.ctx.Writer, ": heartbeat\n\n"); err != nil {
				if s.onError != nil {
					s.onError(err)
				}
				return
			}
			s.ctx.Writer.Flush()
		}
	}
}

// ClientID returns the generated client id
func (s *Stream) ClientID() string {
	return s.client.ID
}

// IsClosed reports whether the stream has been closed
func (s *Stream) IsClosed() bool {
	return s.closed.Load()
}
