package providers

import (
	"context"
	"encoding/json"

	"github.com/harborfin/contactdesk-backend/pkg/enums"
)

// SendRequest carries one delivery to a channel provider.
type SendRequest struct {
	Channel enums.Channel
	Address string
	Payload json.RawMessage
}

// SendResult is the provider's acknowledgment of an accepted delivery.
type SendResult struct {
	ProviderMessageID string
}

// Sender is the single capability a channel provider exposes.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// Registry maps channels to their configured senders.
type Registry struct {
	senders map[enums.Channel]Sender
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[enums.Channel]Sender)}
}

// Register binds a sender to a channel, replacing any previous binding.
func (r *Registry) Register(channel enums.Channel, sender Sender) {
	if sender == nil {
		return
	}
	r.senders[channel] = sender
}

// SenderFor returns the sender bound to the channel.
func (r *Registry) SenderFor(channel enums.Channel) (Sender, bool) {
	sender, ok := r.senders[channel]
	return sender, ok
}
