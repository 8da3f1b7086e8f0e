package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harborfin/contactdesk-backend/pkg/config"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
	pkgerrors "github.com/harborfin/contactdesk-backend/pkg/errors"
)

const defaultTimeout = 10 * time.Second

// WebhookSender delivers through a provider's HTTP webhook. The provider
// responds with the message/call identifier it assigned.
type WebhookSender struct {
	url    string
	apiKey string
	client *http.Client
}

// NewWebhookSender builds a sender for one provider endpoint.
func NewWebhookSender(url, apiKey string, timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &WebhookSender{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookRequest struct {
	Address string          `json:"address"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type webhookResponse struct {
	MessageID string `json:"messageId"`
}

func (s *WebhookSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	body, err := json.Marshal(webhookRequest{
		Address: req.Address,
		Payload: req.Payload,
	})
	if err != nil {
		return SendResult{}, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "encode send request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return SendResult{}, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "build send request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("X-Api-Key", s.apiKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return SendResult{}, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "provider unreachable")
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return SendResult{}, pkgerrors.New(pkgerrors.CodeProvider,
			fmt.Sprintf("provider rejected send: status %d", resp.StatusCode))
	}

	var decoded webhookResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return SendResult{}, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "decode provider response")
	}
	if decoded.MessageID == "" {
		return SendResult{}, pkgerrors.New(pkgerrors.CodeProvider, "provider response missing messageId")
	}
	return SendResult{ProviderMessageID: decoded.MessageID}, nil
}

// NewRegistryFromConfig registers a webhook sender per configured channel.
// Channels without a URL get no sender; their jobs fail as undeliverable.
func NewRegistryFromConfig(cfg config.ProvidersConfig) *Registry {
	registry := NewRegistry()
	endpoints := []struct {
		channel enums.Channel
		url     string
		apiKey  string
	}{
		{enums.ChannelVoice, cfg.VoiceURL, cfg.VoiceAPIKey},
		{enums.ChannelSMS, cfg.SMSURL, cfg.SMSAPIKey},
		{enums.ChannelEmail, cfg.EmailURL, cfg.EmailAPIKey},
		{enums.ChannelWhatsApp, cfg.WhatsAppURL, cfg.WhatsAppAPIKey},
	}
	for _, endpoint := range endpoints {
		if endpoint.url == "" {
			continue
		}
		registry.Register(endpoint.channel, NewWebhookSender(endpoint.url, endpoint.apiKey, cfg.Timeout))
	}
	return registry
}
