package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"MailBlast/internal/credentials"
	"MailBlast/internal/models"
	"MailBlast/internal/transport"
)

// Summary is reported once a run has processed every recipient.
type Summary struct {
	CampaignID string `json:"campaign_id"`
	Sent       int    `json:"sent"`
	Total      int    `json:"total"`
}

func (s Summary) Message() string {
	return fmt.Sprintf("Campaign completed: %d/%d sent successfully", s.Sent, s.Total)
}

func (s Summary) AllSent() bool {
	return s.Sent == s.Total
}

// SendInput is what a user supplies at send time. Credentials come from
// the store.
type SendInput struct {
	Recipients []models.Recipient
	Message    string
	Attachment *models.Attachment
}

// Service owns the session and the last report. Only one run may be in
// flight at a time.
type Service struct {
	Store        credentials.Store
	Transport    transport.Transport
	Orchestrator *Orchestrator
	Log          *zap.Logger

	running sync.Mutex

	mu   sync.RWMutex
	last models.Report
}

func NewService(store credentials.Store, t transport.Transport, logger *zap.Logger) *Service {
	return &Service{
		Store:        store,
		Transport:    t,
		Orchestrator: NewOrchestrator(t, logger),
		Log:          logger,
	}
}

// Login authenticates against the mail service and persists the pair on
// success. A rejection returns *AuthError and stores nothing.
func (s *Service) Login(ctx context.Context, c models.Credentials) error {
	c.Identity = strings.TrimSpace(c.Identity)
	c.Secret = strings.TrimSpace(c.Secret)

	res, err := s.Transport.Authenticate(ctx, c)
	if err != nil {
		s.Log.Error("login request failed", zap.String("identity", c.Identity), zap.Error(err))
		return fmt.Errorf("authenticate: %w", err)
	}

	if !res.Success {
		s.Log.Warn("login rejected", zap.String("identity", c.Identity), zap.String("reason", res.Error))
		return &AuthError{Reason: res.Error}
	}

	if err := s.Store.Save(ctx, c); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	s.Log.Info("login succeeded", zap.String("identity", c.Identity))
	return nil
}

func (s *Service) Logout(ctx context.Context) error {
	if err := s.Store.Clear(ctx); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	s.Log.Info("logged out")
	return nil
}

// Session returns the stored identity, if any.
func (s *Service) Session(ctx context.Context) (string, bool) {
	c, err := s.Store.Load(ctx)
	if err != nil {
		return "", false
	}
	return c.Identity, true
}

// Send runs one campaign with the stored credentials. Missing credentials
// clear the store and return ErrNotAuthenticated.
func (s *Service) Send(
	ctx context.Context,
	in SendInput,
	onProgress ProgressFunc,
	onResult ResultFunc,
) (models.Report, Summary, error) {

	if !s.running.TryLock() {
		return models.Report{}, Summary{}, ErrCampaignRunning
	}
	defer s.running.Unlock()

	creds, err := s.Store.Load(ctx)
	if err != nil {
		if !errors.Is(err, credentials.ErrAbsent) {
			return models.Report{}, Summary{}, fmt.Errorf("load credentials: %w", err)
		}
		s.Log.Warn("stale session, forcing logout")
		if clearErr := s.Store.Clear(ctx); clearErr != nil {
			s.Log.Error("failed to clear credentials", zap.Error(clearErr))
		}
		return models.Report{}, Summary{}, ErrNotAuthenticated
	}

	req := Request{
		Recipients:  in.Recipients,
		Message:     strings.TrimSpace(in.Message),
		Attachment:  in.Attachment,
		Credentials: creds,
	}
	if err := Validate(req); err != nil {
		return models.Report{}, Summary{}, err
	}

	s.mu.Lock()
	s.last = models.Report{}
	s.mu.Unlock()

	record := func(e models.ReportEntry) {
		s.mu.Lock()
		s.last.Entries = append(s.last.Entries, e)
		s.mu.Unlock()

		if onResult != nil {
			onResult(e)
		}
	}

	report, err := s.Orchestrator.Run(ctx, req, onProgress, record)
	if err != nil {
		return models.Report{}, Summary{}, err
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	return report, Summary{
		CampaignID: report.CampaignID,
		Sent:       report.SentCount(),
		Total:      len(report.Entries),
	}, nil
}

// LastReport returns a copy of the most recent run's report.
func (s *Service) LastReport() models.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.last
	out.Entries = append([]models.ReportEntry(nil), s.last.Entries...)
	return out
}

// ClearReport empties the last report.
func (s *Service) ClearReport() {
	s.mu.Lock()
	s.last = models.Report{}
	s.mu.Unlock()
}
