package campaign

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"MailBlast/internal/metrics"
	"MailBlast/internal/models"
	"MailBlast/internal/recipients"
	"MailBlast/internal/transport"
)

// Request is fixed for the duration of one run.
type Request struct {
	Recipients  []models.Recipient
	Message     string
	Attachment  *models.Attachment
	Credentials models.Credentials
}

// Progress is completed/total for the current run.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Percent rounds to the nearest whole percent.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return int(math.Round(float64(p.Completed) * 100 / float64(p.Total)))
}

type (
	ProgressFunc func(Progress)
	ResultFunc   func(models.ReportEntry)
)

// Orchestrator drives the send loop: one dispatch at a time, in input
// order, every valid recipient processed regardless of earlier failures.
type Orchestrator struct {
	Transport transport.Transport
	Log       *zap.Logger

	newID func() string
	now   func() time.Time
}

func NewOrchestrator(t transport.Transport, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		Transport: t,
		Log:       logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Validate checks the preconditions in the order they are reported.
func Validate(req Request) error {
	if !req.Credentials.Complete() {
		return ErrNotAuthenticated
	}
	if len(recipients.Valid(req.Recipients)) == 0 {
		return ErrNoValidRecipients
	}
	if strings.TrimSpace(req.Message) == "" {
		return ErrEmptyMessage
	}
	if req.Attachment == nil {
		return ErrMissingAttachment
	}
	if req.Attachment.Size > models.MaxAttachmentSize {
		return ErrAttachmentTooLarge
	}
	return nil
}

// Run sends to every valid recipient of req and returns the report.
// Either callback may be nil. Precondition failures return before any
// dispatch with an empty report.
func (o *Orchestrator) Run(
	ctx context.Context,
	req Request,
	onProgress ProgressFunc,
	onResult ResultFunc,
) (models.Report, error) {

	if err := Validate(req); err != nil {
		return models.Report{}, err
	}

	targets := recipients.Valid(req.Recipients)
	total := len(targets)

	report := models.Report{
		CampaignID: o.newID(),
		StartedAt:  o.now(),
		Entries:    make([]models.ReportEntry, 0, total),
	}

	log := o.Log.With(zap.String("campaign_id", report.CampaignID))
	log.Info("campaign started",
		zap.Int("recipients", total),
		zap.String("attachment", req.Attachment.Name),
		zap.String("attachment_size", req.Attachment.SizeLabel()),
	)
	metrics.Campaigns.Inc()

	for i, r := range targets {

		// ----------------------------
		// Dispatch
		// ----------------------------
		start := time.Now()
		resp, err := o.Transport.DispatchOne(ctx, transport.Dispatch{
			Recipient:   r.Address,
			Message:     req.Message,
			Attachment:  *req.Attachment,
			Credentials: req.Credentials,
		})
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())

		// ----------------------------
		// Classify + Record
		// ----------------------------
		outcome := Classify(r.Address, resp, err)
		entry := models.ReportEntry{Recipient: r.Address, Outcome: outcome}
		report.Entries = append(report.Entries, entry)

		if outcome.Kind == models.OutcomeSent {
			log.Info("email sent", zap.String("to", r.Address))
			metrics.EmailsSent.Inc()
		} else {
			log.Warn("email not sent",
				zap.String("to", r.Address),
				zap.String("outcome", string(outcome.Kind)),
				zap.String("reason", outcome.Reason),
				zap.Error(err),
			)
			metrics.EmailFailures.WithLabelValues(string(outcome.Kind)).Inc()
		}

		if onResult != nil {
			onResult(entry)
		}
		if onProgress != nil {
			onProgress(Progress{Completed: i + 1, Total: total})
		}
	}

	report.FinishedAt = o.now()

	log.Info("campaign completed",
		zap.Int("sent", report.SentCount()),
		zap.Int("total", total),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)

	return report, nil
}

// Classify maps one DispatchOne result to an Outcome.
//
// A results list is matched by exact address and only the literal "Sent"
// counts; a single status is compared case-insensitively to "sent".
func Classify(recipient string, resp transport.SendResponse, err error) models.Outcome {
	if err != nil {
		var se *transport.StatusError
		switch {
		case errors.As(err, &se):
			return models.TransportError(fmt.Sprintf("Server error (%d)", se.StatusCode))
		case errors.Is(err, transport.ErrMalformedResponse):
			return models.TransportError("malformed response")
		default:
			return models.TransportError("Network error")
		}
	}

	switch resp.Shape {
	case transport.ShapeResults:
		for _, res := range resp.Results {
			if res.Recipient != recipient {
				continue
			}
			if res.Status == "Sent" {
				return models.Sent()
			}
			return models.Failed(res.Error)
		}
		return models.Failed("")

	case transport.ShapeStatus:
		if strings.EqualFold(resp.Status, "sent") {
			return models.Sent()
		}
		return models.Failed(resp.Error)
	}

	return models.TransportError("malformed response")
}
