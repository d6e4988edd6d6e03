package notification

import "context"

type broadcaster interface {
	Broadcast(ctx context.Context, event *Event)
}

// Publisher adapts the hub to the fire-and-forget event interface the item
// and purchase services accept. Delivery is best-effort; domain transactions
// never wait on it.
type Publisher struct {
	hub broadcaster
}

func NewPublisher(hub broadcaster) *Publisher {
	return &Publisher{hub: hub}
}

func (p *Publisher) Publish(ctx context.Context, event string, payload interface{}) {
	if p == nil || p.hub == nil {
		return
	}
	p.hub.Broadcast(ctx, &Event{Type: event, Payload: payload})
}
