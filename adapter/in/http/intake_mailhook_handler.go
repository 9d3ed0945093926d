package http

import (
	"bytes"
	"math"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"intake_server/core/domain"
	"intake_server/core/port/in"
	"intake_server/core/service/mailhook"
	"intake_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// HeaderValues decodes a header given either as one string or as an array.
type HeaderValues []string

func (h *HeaderValues) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var many []string
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*h = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*h = HeaderValues{one}
	return nil
}

type authResult struct {
	Result   string `json:"result"`
	Domain   string `json:"domain,omitempty"`
	Selector string `json:"selector,omitempty"`
	Policy   string `json:"policy,omitempty"`
}

type mailBody struct {
	Text string `json:"text,omitempty"`
	HTML string `json:"html,omitempty"`
}

// MailHookRequest is the JSON body the MTA posts for every inbound email.
type MailHookRequest struct {
	MessageID  string                  `json:"messageId"`
	QueueID    string                  `json:"queueId,omitempty"`
	Sender     string                  `json:"sender"`
	Recipients []string                `json:"recipients"`
	Headers    map[string]HeaderValues `json:"headers"`
	Subject    string                  `json:"subject,omitempty"`
	Body       *mailBody               `json:"body,omitempty"`
	Size       int64                   `json:"size"`
	Timestamp  float64                 `json:"timestamp"`
	SPF        *authResult             `json:"spf,omitempty"`
	DKIM       []authResult            `json:"dkim,omitempty"`
	DMARC      *authResult             `json:"dmarc,omitempty"`
}

func (r *MailHookRequest) toPayload() *domain.MailHookPayload {
	headers := make(domain.MailHeaders, len(r.Headers))
	for name, values := range r.Headers {
		key := strings.ToLower(name)
		headers[key] = append(headers[key], values...)
	}

	p := &domain.MailHookPayload{
		MessageID:  r.MessageID,
		QueueID:    r.QueueID,
		Sender:     r.Sender,
		Recipients: r.Recipients,
		Headers:    headers,
		Subject:    r.Subject,
		Size:       r.Size,
	}
	if r.Body != nil {
		p.Body = domain.MailBody{Text: r.Body.Text, HTML: r.Body.HTML}
	}
	if r.Timestamp > 0 {
		sec, frac := math.Modf(r.Timestamp)
		p.ReceivedAt = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	if r.SPF != nil {
		p.SPF = r.SPF.Result
	}
	for _, d := range r.DKIM {
		p.DKIM = append(p.DKIM, d.Result)
	}
	if r.DMARC != nil {
		p.DMARC = r.DMARC.Result
	}
	return p
}

type hookModifications struct {
	Folder  string            `json:"folder"`
	Headers map[string]string `json:"headers"`
}

// MailHookResponse tells the MTA to accept the email and where to file it.
type MailHookResponse struct {
	Action        string            `json:"action"`
	Confidence    float64           `json:"confidence"`
	Modifications hookModifications `json:"modifications"`
	Error         string            `json:"error,omitempty"`
}

func newMailHookResponse(d domain.HookDecision) MailHookResponse {
	resp := MailHookResponse{
		Action:     string(d.Action),
		Confidence: d.Confidence,
		Modifications: hookModifications{
			Folder:  d.Folder,
			Headers: d.Headers,
		},
	}
	if perr, ok := d.Outcome.(domain.ProcessingError); ok {
		resp.Error = perr.Reason
	}
	return resp
}

// MailHookHandler serves the MTA hook. It always answers 200 with an accept
// action so inbound mail is never bounced by this service.
type MailHookHandler struct {
	hook in.MailHookService
	log  *logger.Logger
}

func NewMailHookHandler(hook in.MailHookService, log *logger.Logger) *MailHookHandler {
	return &MailHookHandler{hook: hook, log: log}
}

func (h *MailHookHandler) Register(router fiber.Router) {
	router.Post("/mta-hook", h.Hook)
	router.Get("/health", h.Health)
}

func (h *MailHookHandler) Hook(c *fiber.Ctx) error {
	var req MailHookRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		h.log.WithContext(c.UserContext()).WithError(err).Warn("invalid mail hook payload")
		decision := mailhook.Decide(domain.ProcessingError{Reason: "invalid hook payload", Err: err}, "")
		return c.JSON(newMailHookResponse(decision))
	}

	decision := h.hook.Process(c.UserContext(), req.toPayload())
	return c.JSON(newMailHookResponse(decision))
}

func (h *MailHookHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"service":   "stalwart-hook",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
