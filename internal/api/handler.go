package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"MailBlast/internal/campaign"
	"MailBlast/internal/models"
	"MailBlast/internal/recipients"
	"MailBlast/internal/report"
)

var validate = validator.New()

type Handler struct {
	Campaigns  *campaign.Service
	Log        *zap.Logger
	MaxCSVRows int

	now func() time.Time
}

func NewHandler(svc *campaign.Service, maxCSVRows int, logger *zap.Logger) *Handler {
	return &Handler{
		Campaigns:  svc,
		Log:        logger,
		MaxCSVRows: maxCSVRows,
		now:        time.Now,
	}
}

type loginRequest struct {
	SMTPEmail string `json:"smtpEmail" validate:"required"`
	SMTPPass  string `json:"smtpPass" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.SMTPEmail = strings.TrimSpace(req.SMTPEmail)
	req.SMTPPass = strings.TrimSpace(req.SMTPPass)
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Please enter both email and password")
		return
	}

	err := h.Campaigns.Login(r.Context(), models.Credentials{
		Identity: req.SMTPEmail,
		Secret:   req.SMTPPass,
	})

	var authErr *campaign.AuthError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "SMTP authentication successful!",
		})
	case errors.As(err, &authErr):
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"error":   "Authentication failed: " + authErr.Reason,
		})
	default:
		writeError(w, http.StatusBadGateway, "Connection error")
	}
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Campaigns.Logout(r.Context()); err != nil {
		h.Log.Error("logout failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Logout failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Disconnected from SMTP"})
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.Campaigns.Session(r.Context())

	body := map[string]interface{}{"authenticated": ok}
	if ok {
		body["smtpEmail"] = identity
	}
	writeJSON(w, http.StatusOK, body)
}

type validateRequest struct {
	Emails string `json:"emails"`
}

type validateResponse struct {
	Recipients []models.Recipient `json:"recipients"`
	Valid      int                `json:"valid"`
	Invalid    int                `json:"invalid"`
}

func (h *Handler) ValidateRecipients(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rs := recipients.Parse(req.Emails)
	valid, invalid := recipients.Count(rs)
	writeJSON(w, http.StatusOK, validateResponse{Recipients: rs, Valid: valid, Invalid: invalid})
}

type resultEvent struct {
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
	Status    string `json:"status"`
	Error     string `json:"error"`
}

type progressEvent struct {
	Type      string `json:"type"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
}

type summaryEvent struct {
	Type       string `json:"type"`
	CampaignID string `json:"campaign_id"`
	Sent       int    `json:"sent"`
	Total      int    `json:"total"`
	Message    string `json:"message"`
}

// StartCampaign reads the multipart form, runs the campaign and streams
// one NDJSON event per result and progress step, then a summary.
func (h *Handler) StartCampaign(w http.ResponseWriter, r *http.Request) {
	form, err := readCampaignForm(r)
	if err != nil {
		h.Log.Debug("invalid campaign form", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	rs := recipients.Parse(form.Emails)
	if len(form.CSV) > 0 {
		fromCSV, err := recipients.ParseCSV(bytes.NewReader(form.CSV), h.MaxCSVRows)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid recipients CSV: "+err.Error())
			return
		}
		rs = append(rs, fromCSV...)
	}

	stream := newEventStream(w, h.Log)

	// the run is not cancelled when the client goes away
	ctx := context.WithoutCancel(r.Context())

	_, summary, err := h.Campaigns.Send(ctx,
		campaign.SendInput{
			Recipients: rs,
			Message:    form.Message,
			Attachment: form.Attachment,
		},
		func(p campaign.Progress) {
			stream.send(progressEvent{
				Type:      "progress",
				Completed: p.Completed,
				Total:     p.Total,
				Percent:   p.Percent(),
			})
		},
		func(e models.ReportEntry) {
			stream.send(resultEvent{
				Type:      "result",
				Recipient: e.Recipient,
				Status:    e.Outcome.Status(),
				Error:     e.Outcome.Reason,
			})
		},
	)
	if err != nil {
		status, msg := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.Log.Error("campaign failed to start", zap.Error(err))
		}
		writeError(w, status, msg)
		return
	}

	stream.send(summaryEvent{
		Type:       "summary",
		CampaignID: summary.CampaignID,
		Sent:       summary.Sent,
		Total:      summary.Total,
		Message:    summary.Message(),
	})
}

type reportRow struct {
	Email  string `json:"email"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	rep := h.Campaigns.LastReport()

	rows := make([]reportRow, 0, len(rep.Entries))
	for _, e := range rep.Entries {
		rows = append(rows, reportRow{
			Email:  e.Recipient,
			Status: e.Outcome.Status(),
			Error:  e.Outcome.Reason,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaign_id": rep.CampaignID,
		"sent":        rep.SentCount(),
		"total":       len(rep.Entries),
		"rows":        rows,
	})
}

func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	csv, err := report.ToCSV(h.Campaigns.LastReport())
	if errors.Is(err, report.ErrEmptyReport) {
		writeError(w, http.StatusNotFound, "No report data to export")
		return
	}
	if err != nil {
		h.Log.Error("export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.FileName(h.now().UTC())+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, csv); err != nil {
		h.Log.Debug("client disconnected during export", zap.Error(err))
	}
}

func (h *Handler) ClearReport(w http.ResponseWriter, r *http.Request) {
	h.Campaigns.ClearReport()
	w.WriteHeader(http.StatusNoContent)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, campaign.ErrNotAuthenticated):
		return http.StatusUnauthorized, "Not authenticated. Please login again."
	case errors.Is(err, campaign.ErrNoValidRecipients):
		return http.StatusBadRequest, "Please enter at least one valid recipient email"
	case errors.Is(err, campaign.ErrEmptyMessage):
		return http.StatusBadRequest, "Message is required"
	case errors.Is(err, campaign.ErrMissingAttachment):
		return http.StatusBadRequest, "Please upload a resume"
	case errors.Is(err, campaign.ErrAttachmentTooLarge):
		return http.StatusRequestEntityTooLarge, "Resume file too large (max 5MB)"
	case errors.Is(err, campaign.ErrCampaignRunning):
		return http.StatusConflict, "A campaign is already running"
	}
	return http.StatusInternalServerError, "Internal error"
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
