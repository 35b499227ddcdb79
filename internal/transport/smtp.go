package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"MailBlast/internal/models"
)

// SMTP delivers directly to a mail server, doing locally what the remote
// /send route does. Replies are reported in the single-status shape.
type SMTP struct {
	Host    string
	Port    int
	Subject string
	Log     *zap.Logger

	// dial is replaced in tests.
	dial func(d *gomail.Dialer) (gomail.SendCloser, error)
}

var _ Transport = (*SMTP)(nil)

func NewSMTP(host string, port int, subject string, logger *zap.Logger) *SMTP {
	return &SMTP{
		Host:    host,
		Port:    port,
		Subject: subject,
		Log:     logger,
		dial:    func(d *gomail.Dialer) (gomail.SendCloser, error) { return d.Dial() },
	}
}

// Authenticate opens and closes one authenticated session. A reply code
// from the server is a rejection; anything else is a network error.
func (s *SMTP) Authenticate(ctx context.Context, c models.Credentials) (LoginResult, error) {
	if err := ctx.Err(); err != nil {
		return LoginResult{}, err
	}

	sc, err := s.dial(s.dialer(c))
	if err != nil {
		if reply, ok := serverReply(err); ok {
			return LoginResult{Success: false, Error: reply}, nil
		}
		return LoginResult{}, fmt.Errorf("smtp dial: %w", err)
	}

	if err := sc.Close(); err != nil {
		s.Log.Warn("smtp close failed", zap.Error(err))
	}
	return LoginResult{Success: true}, nil
}

// DispatchOne builds a message with the resume attached and sends it to a
// single recipient.
func (s *SMTP) DispatchOne(ctx context.Context, d Dispatch) (SendResponse, error) {
	if err := ctx.Err(); err != nil {
		return SendResponse{}, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", d.Credentials.Identity)
	m.SetHeader("To", d.Recipient)
	m.SetHeader("Subject", s.Subject)
	m.SetBody("text/plain", d.Message)

	data := d.Attachment.Bytes
	m.Attach(d.Attachment.Name, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}))

	sc, err := s.dial(s.dialer(d.Credentials))
	if err != nil {
		if reply, ok := serverReply(err); ok {
			return SendResponse{Shape: ShapeStatus, Status: "failed", Error: reply}, nil
		}
		return SendResponse{}, fmt.Errorf("smtp dial: %w", err)
	}
	defer sc.Close()

	// gomail.Send flattens the underlying error, so once a session is
	// open every send error counts as a per-recipient rejection.
	if err := gomail.Send(sc, m); err != nil {
		return SendResponse{Shape: ShapeStatus, Status: "failed", Error: err.Error()}, nil
	}

	return SendResponse{Shape: ShapeStatus, Status: "sent"}, nil
}

func (s *SMTP) dialer(c models.Credentials) *gomail.Dialer {
	return gomail.NewDialer(s.Host, s.Port, c.Identity, c.Secret)
}

func serverReply(err error) (string, bool) {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Error(), true
	}
	return "", false
}
