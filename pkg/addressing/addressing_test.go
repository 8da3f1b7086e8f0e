package addressing

import (
	"testing"

	"github.com/harborfin/contactdesk-backend/pkg/enums"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name    string
		channel enums.Channel
		raw     string
		want    string
		wantErr bool
	}{
		{"e164 passthrough", enums.ChannelSMS, "+15550001111", "+15550001111", false},
		{"formatted us number", enums.ChannelVoice, "(555) 000-1111", "+5550001111", false},
		{"dots and spaces", enums.ChannelWhatsApp, "1 555.000.1111", "+15550001111", false},
		{"letters rejected", enums.ChannelSMS, "555-CALL-NOW", "", true},
		{"too short", enums.ChannelSMS, "+12345", "", true},
		{"too long", enums.ChannelSMS, "+1234567890123456", "", true},
		{"blank", enums.ChannelSMS, "   ", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.channel, tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q): %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	got, err := Normalize(enums.ChannelEmail, "  Ana.Lopez@Example.COM ")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != "ana.lopez@example.com" {
		t.Fatalf("expected lowercased email, got %q", got)
	}

	for _, raw := range []string{"not-an-email", "a@b", "@example.com", "a b@example.com", "a@"} {
		if _, err := Normalize(enums.ChannelEmail, raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestHintMasksAddress(t *testing.T) {
	if got := Hint(enums.ChannelSMS, "+15550001111"); got != "***1111" {
		t.Fatalf("phone hint = %q", got)
	}
	if got := Hint(enums.ChannelEmail, "ana.lopez@example.com"); got != "a***@example.com" {
		t.Fatalf("email hint = %q", got)
	}
	if got := Hint(enums.ChannelSMS, "123"); got != "***" {
		t.Fatalf("short address hint = %q", got)
	}
	if got := Hint(enums.ChannelSMS, ""); got != "" {
		t.Fatalf("empty address hint = %q", got)
	}
}
