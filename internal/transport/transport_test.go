package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"MailBlast/internal/models"
)

var creds = models.Credentials{Identity: "me@example.com", Secret: "app-pass"}

func TestDecodeSendResponse(t *testing.T) {
	t.Run("results shape", func(t *testing.T) {
		got, err := DecodeSendResponse([]byte(`{"results":[{"recipient":"a@b.com","status":"Sent"},{"recipient":"c@d.com","status":"Failed","error":"bounced"}]}`))
		require.NoError(t, err)
		assert.Equal(t, ShapeResults, got.Shape)
		assert.Equal(t, []RecipientResult{
			{Recipient: "a@b.com", Status: "Sent"},
			{Recipient: "c@d.com", Status: "Failed", Error: "bounced"},
		}, got.Results)
	})

	t.Run("empty results list", func(t *testing.T) {
		got, err := DecodeSendResponse([]byte(`{"results": []}`))
		require.NoError(t, err)
		assert.Equal(t, ShapeResults, got.Shape)
		assert.Empty(t, got.Results)
	})

	t.Run("status shape", func(t *testing.T) {
		got, err := DecodeSendResponse([]byte(`{"status":"SENT","error":""}`))
		require.NoError(t, err)
		assert.Equal(t, ShapeStatus, got.Shape)
		assert.Equal(t, "SENT", got.Status)
	})

	t.Run("results null falls back to status", func(t *testing.T) {
		got, err := DecodeSendResponse([]byte(`{"results":null,"status":"failed","error":"quota"}`))
		require.NoError(t, err)
		assert.Equal(t, ShapeStatus, got.Shape)
		assert.Equal(t, "quota", got.Error)
	})

	malformed := map[string]string{
		"not json":          `<html>oops</html>`,
		"no known field":    `{"ok":true}`,
		"status not string": `{"status":1}`,
		"results bad items": `{"results":[1,2]}`,
		"array body":        `[]`,
	}
	for name, body := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSendResponse([]byte(body))
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestHTTPClient_Authenticate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/login", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "me@example.com", body["smtpEmail"])
			assert.Equal(t, "app-pass", body["smtpPass"])

			_, _ = w.Write([]byte(`{"success":true}`))
		}))
		defer srv.Close()

		c := NewHTTPClient(srv.URL+"/", time.Second, zap.NewNop())
		res, err := c.Authenticate(context.Background(), creds)
		require.NoError(t, err)
		assert.True(t, res.Success)
	})

	t.Run("rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":"Invalid login"}`))
		}))
		defer srv.Close()

		c := NewHTTPClient(srv.URL, time.Second, zap.NewNop())
		res, err := c.Authenticate(context.Background(), creds)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "Invalid login", res.Error)
	})

	t.Run("server error without json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := NewHTTPClient(srv.URL, time.Second, zap.NewNop())
		_, err := c.Authenticate(context.Background(), creds)

		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c := NewHTTPClient(url, time.Second, zap.NewNop())
		_, err := c.Authenticate(context.Background(), creds)
		require.Error(t, err)

		var se *StatusError
		assert.False(t, errors.As(err, &se))
		assert.False(t, errors.Is(err, ErrMalformedResponse))
	})
}

func TestHTTPClient_DispatchOne(t *testing.T) {
	attachment := models.Attachment{Name: "cv.pdf", Size: 4, Bytes: []byte("%PDF")}

	t.Run("multipart fields", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/send", r.URL.Path)
			require.NoError(t, r.ParseMultipartForm(1<<20))

			assert.Equal(t, "a@b.com", r.FormValue("email"))
			assert.Equal(t, "hello", r.FormValue("message"))
			assert.Equal(t, "me@example.com", r.FormValue("smtpEmail"))
			assert.Equal(t, "app-pass", r.FormValue("smtpPass"))

			f, hdr, err := r.FormFile("resume")
			require.NoError(t, err)
			defer f.Close()
			b, _ := io.ReadAll(f)
			assert.Equal(t, "cv.pdf", hdr.Filename)
			assert.Equal(t, "%PDF", string(b))

			_, _ = w.Write([]byte(`{"results":[{"recipient":"a@b.com","status":"Sent"}]}`))
		}))
		defer srv.Close()

		c := NewHTTPClient(srv.URL, time.Second, zap.NewNop())
		res, err := c.DispatchOne(context.Background(), Dispatch{
			Recipient:   "a@b.com",
			Message:     "hello",
			Attachment:  attachment,
			Credentials: creds,
		})
		require.NoError(t, err)
		assert.Equal(t, ShapeResults, res.Shape)
	})

	t.Run("non 2xx ignores body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"status":"sent"}`))
		}))
		defer srv.Close()

		c := NewHTTPClient(srv.URL, time.Second, zap.NewNop())
		_, err := c.DispatchOne(context.Background(), Dispatch{Recipient: "a@b.com", Attachment: attachment})

		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 500, se.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		c := NewHTTPClient(srv.URL, time.Second, zap.NewNop())
		_, err := c.DispatchOne(context.Background(), Dispatch{Recipient: "a@b.com", Attachment: attachment})
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

type fakeSendCloser struct {
	sendErr error
	to      []string
	from    string
	closed  bool
	msg     bytes.Buffer
}

func (f *fakeSendCloser) Send(from string, to []string, msg io.WriterTo) error {
	f.from = from
	f.to = to
	if f.sendErr != nil {
		return f.sendErr
	}
	_, err := msg.WriteTo(&f.msg)
	return err
}

func (f *fakeSendCloser) Close() error {
	f.closed = true
	return nil
}

func newTestSMTP(sc gomail.SendCloser, dialErr error) *SMTP {
	s := NewSMTP("smtp.example.com", 587, "Application", zap.NewNop())
	s.dial = func(d *gomail.Dialer) (gomail.SendCloser, error) {
		if dialErr != nil {
			return nil, dialErr
		}
		return sc, nil
	}
	return s
}

func TestSMTP(t *testing.T) {
	ctx := context.Background()
	attachment := models.Attachment{Name: "cv.pdf", Size: 4, Bytes: []byte("%PDF")}

	t.Run("authenticate ok", func(t *testing.T) {
		sc := &fakeSendCloser{}
		res, err := newTestSMTP(sc, nil).Authenticate(ctx, creds)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.True(t, sc.closed)
	})

	t.Run("authenticate rejected", func(t *testing.T) {
		dialErr := &textproto.Error{Code: 535, Msg: "bad credentials"}
		res, err := newTestSMTP(nil, dialErr).Authenticate(ctx, creds)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "bad credentials")
	})

	t.Run("authenticate network error", func(t *testing.T) {
		_, err := newTestSMTP(nil, errors.New("connection refused")).Authenticate(ctx, creds)
		assert.Error(t, err)
	})

	t.Run("dispatch sent", func(t *testing.T) {
		sc := &fakeSendCloser{}
		res, err := newTestSMTP(sc, nil).DispatchOne(ctx, Dispatch{
			Recipient:   "a@b.com",
			Message:     "hello",
			Attachment:  attachment,
			Credentials: creds,
		})
		require.NoError(t, err)
		assert.Equal(t, SendResponse{Shape: ShapeStatus, Status: "sent"}, res)
		assert.Equal(t, []string{"a@b.com"}, sc.to)
		assert.Equal(t, "me@example.com", sc.from)

		raw := sc.msg.String()
		assert.Contains(t, raw, "Subject: Application\r\n")
		assert.Contains(t, raw, "To: a@b.com\r\n")
		assert.Contains(t, raw, "Content-Type: text/plain; charset=UTF-8\r\n")
		assert.Contains(t, raw, "\r\n\r\nhello")
		assert.Contains(t, raw, `Content-Disposition: attachment; filename="cv.pdf"`)
		assert.Contains(t, raw, "JVBERg==")
	})

	t.Run("dispatch rejected", func(t *testing.T) {
		sc := &fakeSendCloser{sendErr: errors.New("550 mailbox unavailable")}
		res, err := newTestSMTP(sc, nil).DispatchOne(ctx, Dispatch{
			Recipient:   "a@b.com",
			Attachment:  attachment,
			Credentials: creds,
		})
		require.NoError(t, err)
		assert.Equal(t, "failed", res.Status)
		assert.Contains(t, res.Error, "550 mailbox unavailable")
	})

	t.Run("dispatch network error", func(t *testing.T) {
		_, err := newTestSMTP(nil, errors.New("i/o timeout")).DispatchOne(ctx, Dispatch{
			Recipient:   "a@b.com",
			Attachment:  attachment,
			Credentials: creds,
		})
		assert.Error(t, err)
	})
}
