package broadcast

import (
	"context"
	"errors"

	"github.com/pusher/pusher-http-go/v5"
)

type pusherTriggerer interface {
	Trigger(channel string, eventName string, data interface{}) error
}

// PusherBroadcaster dispara eventos a traves de la API HTTP de Pusher.
type PusherBroadcaster struct {
	client pusherTriggerer
}

func NewPusherBroadcaster(appID, key, secret, cluster string) (*PusherBroadcaster, error) {
	if appID == "" || key == "" || secret == "" {
		return nil, errors.New("pusher credentials not configured")
	}
	return &PusherBroadcaster{
		client: &pusher.Client{
			AppID:   appID,
			Key:     key,
			Secret:  secret,
			Cluster: cluster,
			Secure:  true,
		},
	}, nil
}

func (b *PusherBroadcaster) Provider() string { return "pusher" }

// Trigger ignora ctx: el cliente de Pusher no acepta contexto y usa su propio timeout.
func (b *PusherBroadcaster) Trigger(_ context.Context, channel, event string, payload any) error {
	if b == nil || b.client == nil {
		return errors.New("pusher broadcaster not configured")
	}
	return b.client.Trigger(channel, event, payload)
}
