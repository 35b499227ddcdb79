package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"MailBlast/internal/models"
)

const (
	maxFieldBytes = 1 << 20
	maxCSVBytes   = 8 << 20
)

var errFieldTooLarge = errors.New("form field too large")

// campaignForm is the decoded POST /campaigns body.
type campaignForm struct {
	Emails     string
	Message    string
	CSV        []byte
	Attachment *models.Attachment
}

// readCampaignForm streams the multipart body. Text fields and the CSV are
// bounded; the resume is buffered only up to the attachment limit and
// otherwise just counted, so the size precondition sees its real size.
func readCampaignForm(r *http.Request) (campaignForm, error) {
	var form campaignForm

	mr, err := r.MultipartReader()
	if err != nil {
		return form, err
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return form, nil
		}
		if err != nil {
			return form, err
		}

		switch part.FormName() {
		case "emails":
			form.Emails, err = readField(part, maxFieldBytes)
		case "message":
			form.Message, err = readField(part, maxFieldBytes)
		case "recipients_csv":
			var s string
			s, err = readField(part, maxCSVBytes)
			form.CSV = []byte(s)
		case "resume":
			if part.FileName() != "" {
				form.Attachment, err = readAttachment(part)
			}
		default:
			_, err = io.Copy(io.Discard, part)
		}
		part.Close()

		if err != nil {
			return form, fmt.Errorf("read %s: %w", part.FormName(), err)
		}
	}
}

func readField(part *multipart.Part, limit int64) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(b)) > limit {
		return "", errFieldTooLarge
	}
	return string(b), nil
}

func readAttachment(part *multipart.Part) (*models.Attachment, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(part, models.MaxAttachmentSize+1))
	if err != nil {
		return nil, err
	}

	a := &models.Attachment{Name: part.FileName(), Size: n}
	if n <= models.MaxAttachmentSize {
		a.Bytes = buf.Bytes()
		return a, nil
	}

	// oversized: count the rest without keeping it
	rest, err := io.Copy(io.Discard, part)
	if err != nil {
		return nil, err
	}
	a.Size += rest
	return a, nil
}
