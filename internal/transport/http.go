package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"MailBlast/internal/models"
)

// HTTPClient talks to the remote mail service over its two JSON routes,
// POST /login and POST /send.
type HTTPClient struct {
	BaseURL string
	HTTP    *http.Client
	Log     *zap.Logger
}

var _ Transport = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		Log:     logger,
	}
}

type loginRequest struct {
	SMTPEmail string `json:"smtpEmail"`
	SMTPPass  string `json:"smtpPass"`
}

// Authenticate posts the credentials to /login. A well-formed
// {success:false} reply is returned as a LoginResult, not an error.
func (c *HTTPClient) Authenticate(ctx context.Context, creds models.Credentials) (LoginResult, error) {
	payload, err := json.Marshal(loginRequest{
		SMTPEmail: creds.Identity,
		SMTPPass:  creds.Secret,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("encode login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return LoginResult{}, fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return LoginResult{}, err
	}

	var result LoginResult
	if err := json.Unmarshal(body, &result); err != nil {
		if status < 200 || status > 299 {
			return LoginResult{}, &StatusError{StatusCode: status}
		}
		return LoginResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	c.Log.Debug("login response",
		zap.String("identity", creds.Identity),
		zap.Int("status", status),
		zap.Bool("success", result.Success),
	)

	return result, nil
}

// DispatchOne posts a multipart form with a single recipient to /send.
func (c *HTTPClient) DispatchOne(ctx context.Context, d Dispatch) (SendResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"email", d.Recipient},
		{"message", d.Message},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return SendResponse{}, fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	part, err := w.CreateFormFile("resume", d.Attachment.Name)
	if err != nil {
		return SendResponse{}, fmt.Errorf("create resume part: %w", err)
	}
	if _, err := part.Write(d.Attachment.Bytes); err != nil {
		return SendResponse{}, fmt.Errorf("write resume part: %w", err)
	}

	for _, f := range []struct{ name, value string }{
		{"smtpEmail", d.Credentials.Identity},
		{"smtpPass", d.Credentials.Secret},
	} {
		if err := w.WriteField(f.name, f.value); err != nil {
			return SendResponse{}, fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return SendResponse{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/send", &buf)
	if err != nil {
		return SendResponse{}, fmt.Errorf("create send request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return SendResponse{}, err
	}

	if status < 200 || status > 299 {
		return SendResponse{}, &StatusError{StatusCode: status}
	}

	return DecodeSendResponse(body)
}

func (c *HTTPClient) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s response: %w", req.URL.Path, err)
	}

	return body, resp.StatusCode, nil
}
