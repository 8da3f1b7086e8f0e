package redaction

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRedactMasksNestedSensitiveKeys(t *testing.T) {
	raw := json.RawMessage(`{
		"name": "Ana",
		"otp_code": "482913",
		"nested": {"Account_Number": "12345678", "note": "call back"},
		"items": [{"token": "abc"}, {"amount": 12}]
	}`)

	got := string(Redact(raw))
	for _, leaked := range []string{"482913", "12345678", `"abc"`} {
		if strings.Contains(got, leaked) {
			t.Fatalf("sensitive value %s leaked: %s", leaked, got)
		}
	}
	for _, kept := range []string{`"Ana"`, `"call back"`, "12"} {
		if !strings.Contains(got, kept) {
			t.Fatalf("non-sensitive value %s dropped: %s", kept, got)
		}
	}
	if strings.Count(got, "[REDACTED]") != 3 {
		t.Fatalf("expected three masked fields: %s", got)
	}
}

func TestRedactLeavesInvalidJSONUntouched(t *testing.T) {
	raw := json.RawMessage(`not json`)
	if got := Redact(raw); string(got) != "not json" {
		t.Fatalf("invalid json must pass through, got %s", got)
	}
	if got := Redact(nil); got != nil {
		t.Fatalf("nil payload must pass through, got %s", got)
	}
}
