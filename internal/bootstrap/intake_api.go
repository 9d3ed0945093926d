package bootstrap

import (
	"strings"
	"time"

	"intake_server/adapter/in/http"
	"intake_server/infra/middleware"
	"intake_server/pkg/ratelimit"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// NewApp assembles the fiber application on top of wired dependencies.
func NewApp(deps *Dependencies) *fiber.App {
	cfg := deps.Config
	log := deps.Log

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(log),
		DisableStartupMessage: cfg.IsProduction(),
		AppName:               "intake",

		// go-json is a drop-in encoding/json replacement
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		ReadBufferSize:  16384,
		WriteBufferSize: 16384,
		BodyLimit:       25 * 1024 * 1024, // mail hook payloads carry full bodies
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,

		ServerHeader:       "",
		DisableDefaultDate: true,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover(log))
	app.Use(middleware.RequestID())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.RequestLogger(log))
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := allowOrigins != "" && allowOrigins != "*"
	if !allowCredentials && cfg.IsProduction() {
		allowOrigins = ""
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    "X-Request-ID,Retry-After,X-Error-Code",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}))

	// Operations (no auth)
	http.NewHealthHandler(deps.DB, deps.SQLDB, deps.Redis).Register(app)
	app.Get("/openapi.json", http.OpenAPI)

	// Mail server hook (no auth, reachable only from the MTA network)
	http.NewMailHookHandler(deps.MailHook, log.WithField("handler", "mailhook")).
		Register(app.Group("/stalwart"))

	validate := http.NewValidator()
	api := app.Group("/api/v1")

	// Direct message submission, rate limited per client IP
	limiter := ratelimit.New(deps.Redis, cfg.RateLimitPerMin, time.Minute)
	http.NewMessageHandler(deps.Ingestion, validate).
		Register(api, middleware.RateLimit(limiter, "messages"))

	// Management routes
	auth := middleware.NewAuthenticator(cfg.JWTSecret, cfg.SupabaseURL, log.WithField("component", "auth"))
	requireUser := auth.Handler()
	http.NewCampaignHandler(deps.CampaignService, validate).Register(api, requireUser)
	http.NewPoliticianHandler(deps.PoliticianService).Register(api, requireUser)
	http.NewReplyTemplateHandler(deps.TemplateService, validate).Register(api, requireUser)

	return app
}
