package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponses(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter, r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "success",
			write:      func(w http.ResponseWriter, _ *http.Request) { Success(w, map[string]string{"status": "sent"}) },
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"sent"}`,
		},
		{
			name:       "error",
			write:      func(w http.ResponseWriter, _ *http.Request) { Error(w, http.StatusBadRequest, "No file uploaded") },
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"No file uploaded"}`,
		},
		{
			name: "error with answer",
			write: func(w http.ResponseWriter, r *http.Request) {
				ErrorWithAnswer(w, r, http.StatusBadRequest, "User message is required")
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"User message is required","answer":"User message is required"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
