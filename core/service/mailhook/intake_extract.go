package mailhook

import (
	"regexp"
	"strings"

	"intake_server/core/domain"
)

var (
	validEmailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	angleAddrRe     = regexp.MustCompile(`<([^>]+)>`)
	displayNameRe   = regexp.MustCompile(`^([^<]+)<`)
	quotedLineRe    = regexp.MustCompile(`(?m)^>.*$`)
	replyHeaderRe   = regexp.MustCompile(`(?m)^\s*On .* wrote:\s*$`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
	htmlTagRe       = regexp.MustCompile(`<[^>]*>`)
	whitespaceRunRe = regexp.MustCompile(`\s+`)
)

// IsValidEmail is a loose syntactic check: something@something.tld with no spaces.
func IsValidEmail(s string) bool {
	return validEmailRe.MatchString(s)
}

// SenderEmail picks the address replies should go to: Reply-To when valid,
// then the address in From, then the envelope sender.
func SenderEmail(p *domain.MailHookPayload) string {
	if replyTo := p.Headers.Get("reply-to"); replyTo != "" && IsValidEmail(replyTo) {
		return replyTo
	}

	if from := p.Headers.Get("from"); from != "" {
		candidate := from
		if m := angleAddrRe.FindStringSubmatch(from); m != nil {
			candidate = m[1]
		}
		candidate = strings.TrimSpace(candidate)
		if candidate != "" && IsValidEmail(candidate) {
			return candidate
		}
	}

	return p.Sender
}

// trimQuote drops at most one quote character from each end.
func trimQuote(s string) string {
	if s != "" && strings.ContainsRune(`"'`, rune(s[0])) {
		s = s[1:]
	}
	if s != "" && strings.ContainsRune(`"'`, rune(s[len(s)-1])) {
		s = s[:len(s)-1]
	}
	return s
}

// SenderName returns the From display name without surrounding quotes,
// or the local part of the sender email.
func SenderName(p *domain.MailHookPayload, senderEmail string) string {
	if from := p.Headers.Get("from"); from != "" {
		if m := displayNameRe.FindStringSubmatch(from); m != nil {
			return trimQuote(strings.TrimSpace(m[1]))
		}
	}
	local, _, _ := strings.Cut(senderEmail, "@")
	return local
}

// Content returns the message text: cleaned plain text, else de-tagged HTML,
// else the subject.
func Content(p *domain.MailHookPayload) string {
	if strings.TrimSpace(p.Body.Text) != "" {
		return CleanText(p.Body.Text)
	}
	if p.Body.HTML != "" {
		return CleanHTML(p.Body.HTML)
	}
	return p.Subject
}

// CleanText drops quoted lines and "On ... wrote:" reply headers and
// collapses runs of blank lines.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = quotedLineRe.ReplaceAllString(text, "")
	text = replyHeaderRe.ReplaceAllString(text, "")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// CleanHTML replaces tags with spaces and collapses whitespace.
func CleanHTML(html string) string {
	text := htmlTagRe.ReplaceAllString(html, " ")
	text = whitespaceRunRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
