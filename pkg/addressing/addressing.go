package addressing

import (
	"strings"

	"github.com/harborfin/contactdesk-backend/pkg/enums"
	pkgerrors "github.com/harborfin/contactdesk-backend/pkg/errors"
)

// Normalize canonicalizes a raw target address for the given channel so
// that equality checks and dedupe keys are stable across formatting
// variants of the same address.
func Normalize(channel enums.Channel, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "target address is required")
	}

	switch {
	case channel == enums.ChannelEmail:
		return normalizeEmail(trimmed)
	case channel.IsPhoneBased():
		return normalizePhone(trimmed)
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported channel")
}

func normalizeEmail(raw string) (string, error) {
	lowered := strings.ToLower(raw)
	at := strings.Index(lowered, "@")
	if at <= 0 || at == len(lowered)-1 || strings.Contains(lowered, " ") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	}
	if !strings.Contains(lowered[at+1:], ".") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid email domain")
	}
	return lowered, nil
}

func normalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+', r == ' ', r == '-', r == '(', r == ')', r == '.':
			// separators and the leading plus are stripped
		default:
			return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid phone number")
		}
	}
	number := digits.String()
	if len(number) < 7 || len(number) > 15 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "phone number must be 7-15 digits")
	}
	return "+" + number, nil
}

// Hint renders a redaction-safe display form of a normalized address for
// listings and logs.
func Hint(channel enums.Channel, address string) string {
	if address == "" {
		return ""
	}
	if channel == enums.ChannelEmail {
		at := strings.Index(address, "@")
		if at <= 0 {
			return "***"
		}
		return address[:1] + "***" + address[at:]
	}
	if len(address) <= 4 {
		return "***"
	}
	return "***" + address[len(address)-4:]
}
