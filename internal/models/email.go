package models

import (
	"fmt"
	"time"
)

// MaxAttachmentSize is the largest resume accepted for a campaign (5 MiB).
const MaxAttachmentSize = 5 * 1024 * 1024

type OutcomeKind string

const (
	OutcomeSent           OutcomeKind = "Sent"
	OutcomeFailed         OutcomeKind = "Failed"
	OutcomeTransportError OutcomeKind = "TransportError"
)

// Recipient is one comma-delimited token of a recipient list.
type Recipient struct {
	Address string `json:"address"`
	IsValid bool   `json:"isValid"`
}

// Credentials identify the sender against the remote mail service.
type Credentials struct {
	Identity string `json:"smtpEmail"`
	Secret   string `json:"-"`
}

func (c Credentials) Complete() bool {
	return c.Identity != "" && c.Secret != ""
}

type Attachment struct {
	Name  string
	Size  int64
	Bytes []byte
}

// SizeLabel renders the size in MiB with two decimals, e.g. "1.25 MB".
func (a Attachment) SizeLabel() string {
	return fmt.Sprintf("%.2f MB", float64(a.Size)/1024/1024)
}

// Outcome is the classified result of one dispatch.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
}

func Sent() Outcome { return Outcome{Kind: OutcomeSent} }

func Failed(reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason}
}

func TransportError(reason string) Outcome {
	return Outcome{Kind: OutcomeTransportError, Reason: reason}
}

// Status is the tag shown to users and written to exports. Transport
// errors are reported as plain failures.
func (o Outcome) Status() string {
	if o.Kind == OutcomeSent {
		return string(OutcomeSent)
	}
	return string(OutcomeFailed)
}

type ReportEntry struct {
	Recipient string  `json:"recipient"`
	Outcome   Outcome `json:"outcome"`
}

// Report holds the outcomes of one campaign run in dispatch order.
type Report struct {
	CampaignID string        `json:"campaign_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Entries    []ReportEntry `json:"entries"`
}

func (r Report) Empty() bool {
	return len(r.Entries) == 0
}

// SentCount returns how many entries were accepted by the remote service.
func (r Report) SentCount() int {
	n := 0
	for _, e := range r.Entries {
		if e.Outcome.Kind == OutcomeSent {
			n++
		}
	}
	return n
}
