package report

import (
	"errors"
	"io"
	"strings"
	"time"

	"MailBlast/internal/models"
)

// ErrEmptyReport is returned instead of producing a header-only file.
var ErrEmptyReport = errors.New("report: no report data to export")

const header = "Email,Status,Error\n"

// ToCSV renders the report with every field double-quoted. Embedded
// quotes are doubled; commas and newlines are left to the quoting.
func ToCSV(r models.Report) (string, error) {
	var b strings.Builder
	if err := WriteCSV(&b, r); err != nil {
		return "", err
	}
	return b.String(), nil
}

func WriteCSV(w io.Writer, r models.Report) error {
	if r.Empty() {
		return ErrEmptyReport
	}

	var b strings.Builder
	b.WriteString(header)
	for _, e := range r.Entries {
		b.WriteString(quote(e.Recipient))
		b.WriteByte(',')
		b.WriteString(quote(e.Outcome.Status()))
		b.WriteByte(',')
		b.WriteString(quote(e.Outcome.Reason))
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// FileName is the download name for a report exported on day.
func FileName(day time.Time) string {
	return "mailblast_report_" + day.Format("2006-01-02") + ".csv"
}

func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
