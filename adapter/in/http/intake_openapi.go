package http

import (
	"github.com/gofiber/fiber/v2"
)

// APIVersion is reported in the OpenAPI document.
const APIVersion = "1.0.0"

type schema = map[string]any

func ref(name string) schema { return schema{"$ref": "#/components/schemas/" + name} }

func str(extra ...any) schema {
	s := schema{"type": "string"}
	for i := 0; i+1 < len(extra); i += 2 {
		s[extra[i].(string)] = extra[i+1]
	}
	return s
}

func jsonBody(s schema) schema {
	return schema{"content": schema{"application/json": schema{"schema": s}}}
}

func reply(desc string, s schema) schema {
	r := jsonBody(s)
	r["description"] = desc
	return r
}

var idParam = []schema{{
	"name": "id", "in": "path", "required": true,
	"schema": schema{"type": "integer", "format": "int64"},
}}

var pageParams = []schema{
	{"name": "limit", "in": "query", "schema": schema{"type": "integer", "default": 50, "maximum": 100}},
	{"name": "offset", "in": "query", "schema": schema{"type": "integer", "default": 0}},
}

var bearer = []schema{{"bearerAuth": []string{}}}

// OpenAPIDocument describes the HTTP surface. The CLI renders the same
// document as JSON or YAML.
func OpenAPIDocument() map[string]any {
	return schema{
		"openapi": "3.0.3",
		"info": schema{
			"title":   "Citizen Message Intake API",
			"version": APIVersion,
		},
		"paths": schema{
			"/api/v1/messages": schema{"post": schema{
				"summary":     "Submit a citizen message",
				"requestBody": jsonBody(ref("MessageRequest")),
				"responses": schema{
					"200": reply("processed", ref("MessageResponse")),
					"400": reply("invalid input or content too short", ref("FailureResponse")),
					"404": reply("politician not found", ref("FailureResponse")),
					"409": reply("duplicate external id", ref("FailureResponse")),
					"429": reply("rate limited", ref("ErrorResponse")),
					"500": reply("processing error", ref("FailureResponse")),
				},
			}},
			"/stalwart/mta-hook": schema{"post": schema{
				"summary":     "Mail server delivery hook",
				"requestBody": jsonBody(ref("MailHookRequest")),
				"responses": schema{
					"200": reply("always accept", ref("MailHookResponse")),
				},
			}},
			"/stalwart/health": schema{"get": schema{
				"summary":   "Mail hook liveness",
				"responses": schema{"200": schema{"description": "ok"}},
			}},
			"/api/v1/campaigns": schema{
				"get": schema{
					"summary":    "List campaigns",
					"security":   bearer,
					"parameters": pageParams,
					"responses":  schema{"200": reply("campaigns", listOf("Campaign"))},
				},
				"post": schema{
					"summary":     "Create a campaign",
					"security":    bearer,
					"requestBody": jsonBody(ref("CreateCampaignRequest")),
					"responses": schema{
						"201": reply("created", dataOf(ref("Campaign"))),
						"400": reply("validation failed", ref("ErrorResponse")),
						"409": reply("slug already exists", ref("ErrorResponse")),
					},
				},
			},
			"/api/v1/campaigns/stats": schema{"get": schema{
				"summary":   "Per campaign message statistics",
				"security":  bearer,
				"responses": schema{"200": reply("stats", dataOf(schema{"type": "array", "items": ref("CampaignStats")}))},
			}},
			"/api/v1/campaigns/{id}": schema{"get": schema{
				"summary":    "Get a campaign",
				"security":   bearer,
				"parameters": idParam,
				"responses": schema{
					"200": reply("campaign", dataOf(ref("Campaign"))),
					"404": reply("not found", ref("ErrorResponse")),
				},
			}},
			"/api/v1/politicians": schema{"get": schema{
				"summary":  "List politicians",
				"security": bearer,
				"parameters": append([]schema{
					{"name": "active", "in": "query", "schema": schema{"type": "boolean", "default": true}},
				}, pageParams...),
				"responses": schema{"200": reply("politicians", listOf("Politician"))},
			}},
			"/api/v1/politicians/{id}": schema{"get": schema{
				"summary":    "Get a politician",
				"security":   bearer,
				"parameters": idParam,
				"responses": schema{
					"200": reply("politician", dataOf(ref("Politician"))),
					"404": reply("not found", ref("ErrorResponse")),
				},
			}},
			"/api/v1/reply-templates": schema{
				"get": schema{
					"summary":  "List reply templates",
					"security": bearer,
					"parameters": append([]schema{
						{"name": "politician_id", "in": "query", "schema": schema{"type": "integer"}},
						{"name": "campaign_id", "in": "query", "schema": schema{"type": "integer"}},
						{"name": "active", "in": "query", "schema": schema{"type": "boolean"}},
					}, pageParams...),
					"responses": schema{"200": reply("templates", listOf("ReplyTemplate"))},
				},
				"post": schema{
					"summary":     "Create a reply template",
					"security":    bearer,
					"requestBody": jsonBody(ref("CreateReplyTemplateRequest")),
					"responses": schema{
						"201": reply("created", dataOf(ref("ReplyTemplate"))),
						"400": reply("validation failed", ref("ErrorResponse")),
					},
				},
			},
			"/api/v1/reply-templates/{id}": schema{"get": schema{
				"summary":    "Get a reply template",
				"security":   bearer,
				"parameters": idParam,
				"responses": schema{
					"200": reply("template", dataOf(ref("ReplyTemplate"))),
					"404": reply("not found", ref("ErrorResponse")),
				},
			}},
			"/health":       opsPath("Liveness"),
			"/ready":        opsPath("Readiness of postgres and redis"),
			"/metrics":      opsPath("Pipeline latency, outcome counters and pool stats"),
			"/openapi.json": opsPath("This document"),
		},
		"components": schema{
			"securitySchemes": schema{
				"bearerAuth": schema{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
			"schemas": componentSchemas(),
		},
	}
}

func opsPath(summary string) schema {
	return schema{"get": schema{
		"summary":   summary,
		"responses": schema{"200": schema{"description": "ok"}},
	}}
}

func dataOf(s schema) schema {
	return schema{
		"type": "object",
		"properties": schema{
			"success": schema{"type": "boolean"},
			"data":    s,
		},
	}
}

func listOf(name string) schema {
	d := dataOf(schema{"type": "array", "items": ref(name)})
	d["properties"].(schema)["meta"] = ref("Meta")
	return d
}

func object(required []string, props schema) schema {
	s := schema{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func componentSchemas() schema {
	integer := schema{"type": "integer", "format": "int64"}
	number := schema{"type": "number"}
	boolean := schema{"type": "boolean"}
	timestamp := str("format", "date-time")
	headerValue := schema{"oneOf": []schema{str(), {"type": "array", "items": str()}}}

	return schema{
		"MessageRequest": object(
			[]string{"external_id", "sender_name", "sender_email", "recipient_email", "message", "timestamp"},
			schema{
				"external_id":     str("minLength", 1, "maxLength", 255),
				"sender_name":     str("minLength", 1, "maxLength", 255),
				"sender_email":    str("format", "email", "maxLength", 255),
				"recipient_email": str("format", "email", "maxLength", 255),
				"subject":         str("maxLength", 500),
				"message":         str("minLength", 10, "maxLength", 10000),
				"timestamp":       timestamp,
				"channel_source":  str("maxLength", 100, "default", "unknown"),
				"campaign_hint":   str("maxLength", 255),
			}),
		"MessageResponse": object(nil, schema{
			"success":        boolean,
			"message_id":     integer,
			"status":         str("enum", []string{"processed"}),
			"campaign_id":    integer,
			"campaign_name":  str(),
			"confidence":     number,
			"duplicate_rank": schema{"type": "integer"},
		}),
		"FailureResponse": object(nil, schema{
			"success": boolean,
			"status":  str("enum", []string{"duplicate", "politician_not_found", "failed"}),
			"error":   str(),
			"errors":  schema{"type": "array", "items": str()},
			"details": schema{},
		}),
		"MailHookRequest": object([]string{"messageId", "sender", "recipients", "headers"}, schema{
			"messageId":  str(),
			"queueId":    str(),
			"sender":     str(),
			"recipients": schema{"type": "array", "items": str()},
			"headers":    schema{"type": "object", "additionalProperties": headerValue},
			"subject":    str(),
			"body": object(nil, schema{
				"text": str(),
				"html": str(),
			}),
			"size":      schema{"type": "integer"},
			"timestamp": schema{"type": "number", "description": "unix seconds"},
			"spf":       schema{"type": "object"},
			"dkim":      schema{"type": "array", "items": schema{"type": "object"}},
			"dmarc":     schema{"type": "object"},
		}),
		"MailHookResponse": object([]string{"action", "confidence", "modifications"}, schema{
			"action":     str("enum", []string{"accept"}),
			"confidence": number,
			"modifications": object(nil, schema{
				"folder":  str(),
				"headers": schema{"type": "object", "additionalProperties": str()},
			}),
			"error": str(),
		}),
		"Campaign": object(nil, schema{
			"id":          integer,
			"name":        str(),
			"slug":        str(),
			"description": str(),
			"status":      str("enum", []string{"active", "unconfirmed"}),
			"created_by":  str(),
			"created_at":  timestamp,

			"has_reference_vector": boolean,
		}),
		"CreateCampaignRequest": object([]string{"name", "slug"}, schema{
			"name":        str("minLength", 3, "maxLength", 255),
			"slug":        str("minLength", 3, "maxLength", 255, "pattern", "^[a-z0-9-]+$"),
			"description": str("maxLength", 2000),
		}),
		"CampaignStats": object(nil, schema{
			"id":             integer,
			"name":           str(),
			"slug":           str(),
			"status":         str(),
			"message_count":  integer,
			"recent_count":   integer,
			"avg_confidence": number,
		}),
		"Politician": object(nil, schema{
			"id":                integer,
			"name":              str(),
			"email":             str("format", "email"),
			"additional_emails": schema{"type": "array", "items": str()},
			"party":             str(),
			"country":           str(),
			"region":            str(),
			"position":          str(),
			"active":            boolean,
			"created_at":        timestamp,
		}),
		"ReplyTemplate": object(nil, schema{
			"id":            integer,
			"politician_id": integer,
			"campaign_id":   integer,
			"name":          str(),
			"subject":       str(),
			"body":          str(),
			"active":        boolean,
			"created_at":    timestamp,
		}),
		"CreateReplyTemplateRequest": object([]string{"politician_id", "campaign_id", "name", "subject", "body"}, schema{
			"politician_id": integer,
			"campaign_id":   integer,
			"name":          str("minLength", 1, "maxLength", 255),
			"subject":       str("minLength", 1, "maxLength", 500),
			"body":          str("minLength", 1),
			"active":        boolean,
		}),
		"Meta": object(nil, schema{
			"total":    schema{"type": "integer"},
			"limit":    schema{"type": "integer"},
			"offset":   schema{"type": "integer"},
			"has_more": boolean,
		}),
		"ErrorResponse": object(nil, schema{
			"success": boolean,
			"error": object(nil, schema{
				"code":    str(),
				"message": str(),
				"details": schema{"type": "object"},
			}),
			"request_id": str(),
			"timestamp":  timestamp,
		}),
	}
}

// OpenAPI serves the document at GET /openapi.json.
func OpenAPI(c *fiber.Ctx) error {
	return c.JSON(OpenAPIDocument())
}
