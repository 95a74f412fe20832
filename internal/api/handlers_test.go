package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/workbridge/marketplace-service/internal/app"
	"github.com/workbridge/marketplace-service/internal/store"
)

func TestWriteServiceError_StatusMapping(t *testing.T) {
	h := &MarketplaceHandlers{}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing project maps to 404",
			err:        store.ErrProjectNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "missing invoice maps to 404",
			err:        store.ErrInvoiceNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "non-owner maps to 403",
			err:        app.ErrNotProjectOwner,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "self bid maps to 403",
			err:        app.ErrSelfBid,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "duplicate bid maps to 409 conflict",
			err:        store.ErrDuplicateBid,
			wantStatus: http.StatusConflict,
			wantCode:   "conflict",
		},
		{
			name:       "closed project maps to 409 invalid_state",
			err:        store.ErrProjectNotOpen,
			wantStatus: http.StatusConflict,
			wantCode:   "invalid_state",
		},
		{
			name:       "milestone state conflict maps to 409 invalid_state",
			err:        store.ErrMilestoneStateConflict,
			wantStatus: http.StatusConflict,
			wantCode:   "invalid_state",
		},
		{
			name:       "validation failure maps to 400",
			err:        &app.ValidationError{Msg: "budget must be positive"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "rate limit maps to 429",
			err:        app.ErrRateLimited,
			wantStatus: http.StatusTooManyRequests,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.writeServiceError(rec, "test", tt.err)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			var body errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response body: %v", err)
			}
			if body.Error == "" {
				t.Fatal("expected an error message in the body")
			}
			if body.Code != tt.wantCode {
				t.Fatalf("expected code %q, got %q", tt.wantCode, body.Code)
			}
		})
	}
}
