package enums

import "fmt"

// Channel identifies an outbound delivery channel.
type Channel string

const (
	ChannelVoice    Channel = "voice"
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

var validChannels = []Channel{
	ChannelVoice,
	ChannelSMS,
	ChannelEmail,
	ChannelWhatsApp,
}

// IsValid reports whether the value matches the canonical channel enum.
func (c Channel) IsValid() bool {
	for _, candidate := range validChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsPhoneBased reports whether the channel targets a phone number.
func (c Channel) IsPhoneBased() bool {
	return c == ChannelVoice || c == ChannelSMS || c == ChannelWhatsApp
}

// DefaultMaxAttempts returns the per-channel delivery attempt ceiling.
// Voice retries are tighter since a repeated robocall is more intrusive
// than a repeated message.
func (c Channel) DefaultMaxAttempts() int {
	if c == ChannelVoice {
		return 2
	}
	return 3
}

// ParseChannel converts raw input into Channel.
func ParseChannel(value string) (Channel, error) {
	for _, candidate := range validChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid channel %q", value)
}
