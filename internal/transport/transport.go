package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"MailBlast/internal/models"
)

// ErrMalformedResponse is returned when a send response cannot be decoded
// into one of the known shapes.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError reports a non-2xx reply. The body is ignored.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d)", e.StatusCode)
}

// Transport is the client side of the remote mail service. DispatchOne
// sends to exactly one recipient per call. Any error other than
// *StatusError or ErrMalformedResponse is a network failure.
type Transport interface {
	Authenticate(ctx context.Context, c models.Credentials) (LoginResult, error)
	DispatchOne(ctx context.Context, req Dispatch) (SendResponse, error)
}

type LoginResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Dispatch carries everything one /send call needs.
type Dispatch struct {
	Recipient   string
	Message     string
	Attachment  models.Attachment
	Credentials models.Credentials
}

type ResponseShape int

const (
	// ShapeResults is {"results":[{recipient,status,error}, ...]}.
	ShapeResults ResponseShape = iota + 1
	// ShapeStatus is {"status": "...", "error": "..."}.
	ShapeStatus
)

type RecipientResult struct {
	Recipient string `json:"recipient"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// SendResponse is the decoded body of a successful /send call.
type SendResponse struct {
	Shape   ResponseShape
	Results []RecipientResult
	Status  string
	Error   string
}

// DecodeSendResponse picks the response shape explicitly: a "results"
// array wins, otherwise a string "status" is required. Anything else is
// ErrMalformedResponse.
func DecodeSendResponse(body []byte) (SendResponse, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return SendResponse{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var errText string
	if msg, ok := raw["error"]; ok {
		// a non-string error field is treated as absent
		_ = json.Unmarshal(msg, &errText)
	}

	if results, ok := raw["results"]; ok && isArray(results) {
		var list []RecipientResult
		if err := json.Unmarshal(results, &list); err != nil {
			return SendResponse{}, fmt.Errorf("%w: results: %v", ErrMalformedResponse, err)
		}
		return SendResponse{Shape: ShapeResults, Results: list, Error: errText}, nil
	}

	if status, ok := raw["status"]; ok {
		var s string
		if err := json.Unmarshal(status, &s); err != nil {
			return SendResponse{}, fmt.Errorf("%w: status: %v", ErrMalformedResponse, err)
		}
		return SendResponse{Shape: ShapeStatus, Status: s, Error: errText}, nil
	}

	return SendResponse{}, fmt.Errorf("%w: neither results nor status present", ErrMalformedResponse)
}

func isArray(msg json.RawMessage) bool {
	for _, b := range msg {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}
