package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/harborfin/contactdesk-backend/pkg/config"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
)

func TestInternalOrAdmin(t *testing.T) {
	cfg := config.AuthConfig{
		InternalKey:     "hunter2",
		AdminRoleHeader: "X-User-Role",
		AdminRoleValue:  "admin",
	}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})

	handler := InternalOrAdmin(cfg, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name       string
		headers    map[string]string
		wantStatus int
	}{
		{"no credentials", nil, http.StatusUnauthorized},
		{"valid internal key", map[string]string{"X-Internal-Key": "hunter2"}, http.StatusNoContent},
		{"wrong internal key", map[string]string{"X-Internal-Key": "letmein"}, http.StatusForbidden},
		{"admin role", map[string]string{"X-User-Role": "admin"}, http.StatusNoContent},
		{"insufficient role", map[string]string{"X-User-Role": "agent"}, http.StatusForbidden},
		{"bad key with good role still rejected", map[string]string{
			"X-Internal-Key": "letmein",
			"X-User-Role":    "admin",
		}, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/inbox", nil)
			for name, value := range tc.headers {
				req.Header.Set(name, value)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("%s: status %d, want %d", tc.name, rec.Code, tc.wantStatus)
			}
		})
	}
}
