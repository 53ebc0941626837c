package broadcast

import (
	"context"
	"encoding/json"
)

// Broadcaster dispara un evento en el relay pub/sub. Es best-effort: quien llama
// no depende del resultado.
type Broadcaster interface {
	Provider() string
	Trigger(ctx context.Context, channel, event string, payload any) error
}

// Event es el sobre que viaja por el relay.
type Event struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

type noopBroadcaster struct{}

// NewNoop devuelve un Broadcaster que descarta los eventos.
func NewNoop() Broadcaster {
	return noopBroadcaster{}
}

func (noopBroadcaster) Provider() string { return "none" }

func (noopBroadcaster) Trigger(context.Context, string, string, any) error { return nil }
