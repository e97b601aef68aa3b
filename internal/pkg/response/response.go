package response

import (
	"encoding/json"
	"net/http"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already sent
			zap.L().Error("failed to encode response", zap.Error(err))
		}
	}
}

// Error writes an error response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, entity.ErrorResponse{Error: message})
}

// ErrorWithAnswer writes an error that chat clients can show as the reply.
func ErrorWithAnswer(w http.ResponseWriter, r *http.Request, status int, message string) {
	ctxzap.Debug(r.Context(), "responding with error answer", zap.Int("status", status), zap.String("message", message))
	JSON(w, status, entity.ErrorResponse{Error: message, Answer: message})
}

// Success writes a success response
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}
