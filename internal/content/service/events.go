package service

import (
	"github.com/gin-gonic/gin"

	"github.com/cartelera/signage-backend/internal/content/biz"
	"github.com/cartelera/signage-backend/internal/pkg/sse"
)

// HubPublisher adapts the SSE hub to the engine's Publisher port
type HubPublisher struct {
	hub *sse.Hub
}

// NewHubPublisher creates the adapter
func NewHubPublisher(hub *sse.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

// Publish fans an event out to subscribers of the topic
func (p *HubPublisher) Publish(topic, eventType string, payload interface{}) {
	p.hub.Broadcast(topic, sse.Event{Type: eventType, Data: payload})
}

// Events streams lifecycle events over SSE. Clients may subscribe to a
// single stage with ?topic=<stage>; without it they receive every
// event. Each new client gets the current monitoring state immediately
// after registration so there is no gap between bootstrap and the
// live stream.
func (s *ContentService) Events(c *gin.Context) {
	stream := sse.NewStream(c, s.hub).
		WithTopic(c.Query("topic")).
		WithBufferSize(s.cfg.EventBufferSize).
		OnConnect(func(st *sse.Stream) {
			_ = st.Send(biz.EventMonitoringUpdated, s.uc.MonitoringState())
		}).
		Build()

	stream.StartStreaming()
}
