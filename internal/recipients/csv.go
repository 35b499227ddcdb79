package recipients

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"MailBlast/internal/models"
)

const defaultMaxRows = 1000

// ParseCSV reads recipients from a CSV with a header row containing an
// "Email" column (case-insensitive). Other columns are ignored. Each
// address goes through the same syntactic check as Parse, so invalid
// rows are returned flagged rather than dropped.
//
// maxRows limits how many data rows are parsed (excluding header).
func ParseCSV(r io.Reader, maxRows int) ([]models.Recipient, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("csv is empty")
		}
		return nil, err
	}

	emailIdx := -1
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), "email") {
			emailIdx = i
			break
		}
	}
	if emailIdx == -1 {
		return nil, errors.New("csv must contain an Email column")
	}

	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}

	rows := make([]models.Recipient, 0)
	for len(rows) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if emailIdx >= len(record) {
			// skip short row
			continue
		}

		email := strings.TrimSpace(record[emailIdx])
		if email == "" {
			continue
		}

		rows = append(rows, Check(email))
	}

	if len(rows) == 0 {
		return nil, errors.New("csv must contain at least one data row")
	}

	return rows, nil
}
