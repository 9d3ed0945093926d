package domain

import (
	"strings"
	"time"
)

// MailHeaders holds inbound mail headers with lower-cased keys. A header may
// appear more than once.
type MailHeaders map[string][]string

// Get returns the first value of a header, matching the name case-insensitively.
func (h MailHeaders) Get(name string) string {
	if vals := h[strings.ToLower(name)]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// MailBody carries the decoded text and HTML parts of an email.
type MailBody struct {
	Text string
	HTML string
}

// MailHookPayload is one email as delivered by the MTA hook.
type MailHookPayload struct {
	MessageID  string
	QueueID    string
	Sender     string
	Recipients []string
	Headers    MailHeaders
	Subject    string
	Body       MailBody
	Size       int64
	ReceivedAt time.Time

	// Authentication results are decoded but not used for routing.
	SPF   string
	DKIM  []string
	DMARC string
}

// HookAction tells the MTA what to do with the email.
type HookAction string

const HookAccept HookAction = "accept"

// HookDecision is the routing answer for one inbound email.
type HookDecision struct {
	Action     HookAction
	Confidence float64
	Folder     string
	Headers    map[string]string
	Outcome    Outcome
}
