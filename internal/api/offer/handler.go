package offer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/pkg/formatter"
	"github.com/futig/workspace-agent/internal/pkg/logger"
	"github.com/futig/workspace-agent/internal/pkg/response"
	"github.com/futig/workspace-agent/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	missingFieldsMessage = "Missing required fields"
	exportTitle          = "Offer Letter"
)

type Handler struct {
	sender    EmailSender
	formats   *formatter.Factory
	validator *validator.Validator
}

func NewHandler(sender EmailSender, formats *formatter.Factory, validator *validator.Validator) *Handler {
	return &Handler{
		sender:    sender,
		formats:   formats,
		validator: validator,
	}
}

// SendEmail handles POST /api/email/send
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "SendEmail")

	var req entity.SendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, missingFieldsMessage, err)
		return
	}

	if err := h.validator.ValidateSendEmail(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, missingFieldsMessage, err)
		return
	}

	ctx = logger.AddFields(ctx, zap.String("to", req.To))
	ctxzap.Info(ctx, "sending offer email")

	if err := h.sender.Send(ctx, req); err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "Failed to send email", err)
		return
	}

	response.Success(w, map[string]string{"status": "sent"})
}

// Export handles POST /api/offer/export?format=pdf|docx|md
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ExportOffer")

	formatParam := r.URL.Query().Get("format")
	if formatParam == "" {
		formatParam = string(entity.FormatPDF)
	}
	ctx = logger.AddFields(ctx, zap.String("format", formatParam))

	var req entity.ExportOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.HTML) == "" {
		if err == nil {
			err = fmt.Errorf("%w: html", entity.ErrMissingField)
		}
		h.respondError(ctx, w, http.StatusBadRequest, missingFieldsMessage, err)
		return
	}

	fmtr, err := h.formats.Create(entity.ExportFormat(formatParam))
	if err != nil {
		if errors.Is(err, entity.ErrUnknownFormat) {
			h.respondError(ctx, w, http.StatusBadRequest, "format must be one of: pdf, docx, md", err)
			return
		}
		h.respondError(ctx, w, http.StatusInternalServerError, "failed to create formatter", err)
		return
	}

	title := exportTitle
	if name := strings.TrimSpace(req.Name); name != "" {
		title = exportTitle + " - " + name
	}

	doc, err := formatter.FromHTML(title, req.HTML)
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid offer html", err)
		return
	}

	data, err := fmtr.Format(doc)
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "failed to format offer", err)
		return
	}

	ctxzap.Info(ctx, "offer exported", zap.Int("bytes", len(data)))
	w.Header().Set("Content-Type", fmtr.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s%s\"", exportFileName(req.Name), fmtr.FileExtension()))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// exportFileName builds a download name such as "offer-letter-Jane_Doe".
func exportFileName(name string) string {
	name = strings.Trim(validator.SanitizeFilename(strings.TrimSpace(name)), `."/\`)
	if name == "" {
		return "offer-letter"
	}
	return "offer-letter-" + strings.ReplaceAll(name, `"`, "")
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else {
		ctxzap.Warn(ctx, message, zap.Error(err))
	}
	response.Error(w, status, message)
}
