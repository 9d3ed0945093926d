package http

import (
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"intake_server/core/domain"
	"intake_server/core/service/campaign"
	"intake_server/core/service/mailhook"
	"intake_server/infra/middleware"
	"intake_server/internal/memstore"
	"intake_server/pkg/apperr"
	"intake_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngest struct {
	outcome domain.Outcome
	got     *domain.InboundMessage
}

func (f *fakeIngest) Ingest(_ context.Context, msg *domain.InboundMessage) domain.Outcome {
	f.got = msg
	return f.outcome
}

type fakeHook struct {
	got *domain.MailHookPayload
}

func (f *fakeHook) Process(_ context.Context, p *domain.MailHookPayload) domain.HookDecision {
	f.got = p
	return mailhook.Decide(domain.PoliticianNotFound{RecipientEmail: "x@example.org"}, p.MessageID)
}

func newTestApp() *fiber.App {
	log := logger.Nop()
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(log),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	app.Use(middleware.RequestID())
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*nethttp.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

const validMessage = `{
	"external_id": "ext-1",
	"sender_name": "Ada Citizen",
	"sender_email": "ada@example.com",
	"recipient_email": "mp@parliament.example",
	"subject": "Bus line 12",
	"message": "Please keep the night bus running.",
	"timestamp": "2024-03-01T10:00:00Z",
	"campaign_hint": "night-bus"
}`

func TestMessageHandler_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		outcome    domain.Outcome
		wantStatus int
		wantField  string
		wantValue  any
	}{
		{
			name: "processed",
			outcome: domain.Processed{
				MessageID:      42,
				Classification: domain.ClassificationResult{CampaignID: 7, CampaignName: "Night Bus", Confidence: 0.95},
				DuplicateRank:  1,
			},
			wantStatus: nethttp.StatusOK,
			wantField:  "status",
			wantValue:  "processed",
		},
		{"duplicate", domain.Duplicate{ExternalID: "ext-1"}, nethttp.StatusConflict, "status", "duplicate"},
		{"unknown politician", domain.PoliticianNotFound{RecipientEmail: "mp@parliament.example"}, nethttp.StatusNotFound, "status", "politician_not_found"},
		{"too short", domain.ContentTooShort{Length: 3}, nethttp.StatusBadRequest, "status", "failed"},
		{"processing error", domain.ProcessingError{Reason: "embedding failed"}, nethttp.StatusInternalServerError, "details", "embedding failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingest := &fakeIngest{outcome: tt.outcome}
			app := newTestApp()
			NewMessageHandler(ingest, nil).Register(app.Group("/api/v1"))

			resp, body := doJSON(t, app, nethttp.MethodPost, "/api/v1/messages", validMessage)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantValue, body[tt.wantField])
		})
	}
}

func TestMessageHandler_ProcessedBody(t *testing.T) {
	ingest := &fakeIngest{outcome: domain.Processed{
		MessageID:      42,
		Classification: domain.ClassificationResult{CampaignID: 7, CampaignName: "Night Bus", Confidence: 0.95},
		DuplicateRank:  0,
	}}
	app := newTestApp()
	NewMessageHandler(ingest, nil).Register(app.Group("/api/v1"))

	_, body := doJSON(t, app, nethttp.MethodPost, "/api/v1/messages", validMessage)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 42, body["message_id"])
	assert.EqualValues(t, 7, body["campaign_id"])
	assert.Equal(t, "Night Bus", body["campaign_name"])
	assert.EqualValues(t, 0.95, body["confidence"])
	assert.EqualValues(t, 0, body["duplicate_rank"])

	require.NotNil(t, ingest.got)
	assert.Equal(t, domain.ChannelAPI, ingest.got.Channel)
	assert.Equal(t, domain.ChannelSourceUnknown, ingest.got.ChannelSource)
	assert.Equal(t, "night-bus", ingest.got.CampaignHint)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), ingest.got.SentAt)
}

func TestMessageHandler_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"external_id":`},
		{"missing fields", `{"external_id":"x"}`},
		{"bad email", strings.Replace(validMessage, "ada@example.com", "not-an-email", 1)},
		{"message too short", strings.Replace(validMessage, "Please keep the night bus running.", "short", 1)},
		{"bad timestamp", strings.Replace(validMessage, "2024-03-01T10:00:00Z", "yesterday", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingest := &fakeIngest{}
			app := newTestApp()
			NewMessageHandler(ingest, nil).Register(app.Group("/api/v1"))

			resp, body := doJSON(t, app, nethttp.MethodPost, "/api/v1/messages", tt.body)
			assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "Invalid input data", body["error"])
			assert.Nil(t, ingest.got, "ingestion must not run for invalid input")
		})
	}
}

func TestMailHookHandler_DecodesPayload(t *testing.T) {
	hook := &fakeHook{}
	app := newTestApp()
	NewMailHookHandler(hook, logger.Nop()).Register(app.Group("/stalwart"))

	payload := `{
		"messageId": "<abc@mail.example>",
		"sender": "bounce@mail.example",
		"recipients": ["mp@parliament.example"],
		"headers": {
			"From": "Ada <ada@example.com>",
			"Received": ["by mx1", "by mx2"]
		},
		"subject": "Hello",
		"body": {"text": "Please keep the night bus running."},
		"size": 1024,
		"timestamp": 1709287200,
		"spf": {"result": "pass"},
		"dkim": [{"result": "pass", "domain": "example.com"}]
	}`

	resp, body := doJSON(t, app, nethttp.MethodPost, "/stalwart/mta-hook", payload)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "accept", body["action"])
	mods := body["modifications"].(map[string]any)
	assert.Equal(t, mailhook.FolderUnknown, mods["folder"])
	assert.NotContains(t, body, "error")

	require.NotNil(t, hook.got)
	assert.Equal(t, "Ada <ada@example.com>", hook.got.Headers.Get("from"))
	assert.Equal(t, []string{"by mx1", "by mx2"}, hook.got.Headers["received"])
	assert.Equal(t, time.Unix(1709287200, 0).UTC(), hook.got.ReceivedAt)
	assert.Equal(t, "pass", hook.got.SPF)
	assert.Equal(t, []string{"pass"}, hook.got.DKIM)
}

func TestMailHookHandler_InvalidJSONStillAccepts(t *testing.T) {
	hook := &fakeHook{}
	app := newTestApp()
	NewMailHookHandler(hook, logger.Nop()).Register(app.Group("/stalwart"))

	resp, body := doJSON(t, app, nethttp.MethodPost, "/stalwart/mta-hook", `{"messageId": 12`)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "accept", body["action"])
	assert.Equal(t, "invalid hook payload", body["error"])
	mods := body["modifications"].(map[string]any)
	assert.Equal(t, mailhook.FolderProcessingError, mods["folder"])
	assert.Nil(t, hook.got)
}

func TestMailHookHandler_Health(t *testing.T) {
	app := newTestApp()
	NewMailHookHandler(&fakeHook{}, logger.Nop()).Register(app.Group("/stalwart"))

	resp, body := doJSON(t, app, nethttp.MethodGet, "/stalwart/health", "")
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func newCampaignApp(store *memstore.Store) *fiber.App {
	app := newTestApp()
	NewCampaignHandler(campaign.NewService(store.Campaigns()), nil).Register(app.Group("/api/v1"))
	return app
}

func TestCampaignHandler_Create(t *testing.T) {
	store := memstore.New()
	app := newCampaignApp(store)

	resp, body := doJSON(t, app, nethttp.MethodPost, "/api/v1/campaigns", `{"name":"Night Bus","slug":"night-bus"}`)
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "night-bus", data["slug"])
	assert.Equal(t, string(domain.CampaignUnconfirmed), data["status"])

	resp, body = doJSON(t, app, nethttp.MethodPost, "/api/v1/campaigns", `{"name":"Night Bus again","slug":"night-bus"}`)
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)
	assert.Equal(t, apperr.CodeAlreadyExists, body["error"].(map[string]any)["code"])
}

func TestCampaignHandler_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"uppercase slug", `{"name":"Night Bus","slug":"Night-Bus"}`},
		{"short name", `{"name":"NB","slug":"night-bus"}`},
		{"missing slug", `{"name":"Night Bus"}`},
	}

	app := newCampaignApp(memstore.New())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, nethttp.MethodPost, "/api/v1/campaigns", tt.body)
			assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, apperr.CodeValidationFailed, body["error"].(map[string]any)["code"])
		})
	}
}

func TestCampaignHandler_GetAndList(t *testing.T) {
	store := memstore.New()
	created := store.AddCampaign(domain.Campaign{Name: "Clean Air", Slug: "clean-air", Status: domain.CampaignActive}, nil)
	app := newCampaignApp(store)

	resp, body := doJSON(t, app, nethttp.MethodGet, "/api/v1/campaigns/"+strconv.FormatInt(created.ID, 10), "")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "clean-air", body["data"].(map[string]any)["slug"])

	resp, _ = doJSON(t, app, nethttp.MethodGet, "/api/v1/campaigns/999999", "")
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, nethttp.MethodGet, "/api/v1/campaigns/abc", "")
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, app, nethttp.MethodGet, "/api/v1/campaigns?limit=10", "")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)
	assert.EqualValues(t, 1, body["meta"].(map[string]any)["total"])
}

func TestHealthHandler(t *testing.T) {
	app := newTestApp()
	h := NewHealthHandler(nil, nil, nil).
		WithCheck("postgres", HealthCheckFunc(func(context.Context) error { return nil }))
	h.Register(app)

	resp, body := doJSON(t, app, nethttp.MethodGet, "/ready", "")
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["checks"].(map[string]any)["postgres"])
	assert.Equal(t, "not configured", body["checks"].(map[string]any)["redis"])

	h.WithCheck("redis", HealthCheckFunc(func(context.Context) error { return assert.AnError }))
	resp, body = doJSON(t, app, nethttp.MethodGet, "/ready", "")
	assert.Equal(t, nethttp.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "not ready", body["status"])

	resp, body = doJSON(t, app, nethttp.MethodGet, "/metrics", "")
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "latency")
	assert.Contains(t, body, "outcomes")
}

func TestOpenAPIDocument(t *testing.T) {
	app := newTestApp()
	app.Get("/openapi.json", OpenAPI)

	resp, body := doJSON(t, app, nethttp.MethodGet, "/openapi.json", "")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "3.0.3", body["openapi"])

	paths := body["paths"].(map[string]any)
	for _, p := range []string{"/api/v1/messages", "/stalwart/mta-hook", "/api/v1/campaigns", "/api/v1/reply-templates/{id}"} {
		assert.Contains(t, paths, p)
	}
}
