package redaction

import (
	"encoding/json"
	"strings"
)

const mask = "[REDACTED]"

// sensitiveKeys are payload fields that are never persisted or logged in
// the clear.
var sensitiveKeys = map[string]struct{}{
	"otp":             {},
	"otp_code":        {},
	"code":            {},
	"token":           {},
	"secret":          {},
	"password":        {},
	"pin":             {},
	"ssn":             {},
	"pan":             {},
	"card_number":     {},
	"account_number":  {},
	"security_answer": {},
}

// Redact masks sensitive fields in a JSON document, recursively. Invalid
// JSON is returned untouched; redaction is applied once at the persistence
// boundary so callers can pass payloads through freely after that.
func Redact(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return raw
	}
	redacted, err := json.Marshal(redactValue(doc))
	if err != nil {
		return raw
	}
	return redacted
}

func redactValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			if isSensitive(key) {
				out[key] = mask
				continue
			}
			out[key] = redactValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = redactValue(inner)
		}
		return out
	default:
		return v
	}
}

func isSensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}
