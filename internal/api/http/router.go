package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-loader/internal/archive"
	"github.com/mind-engage/mindengage-loader/internal/audit"
	authmw "github.com/mind-engage/mindengage-loader/internal/auth/middleware"
	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/logging"
	"github.com/mind-engage/mindengage-loader/internal/metrics"
	"github.com/mind-engage/mindengage-loader/internal/rbac"
	"github.com/mind-engage/mindengage-loader/internal/session"
)

// Recorder is what the gateway reports to: domain and request metrics.
type Recorder interface {
	metrics.Metrics
	metrics.GatewayMetrics
}

type Deps struct {
	Auth     *authmw.AuthService
	Sessions session.Store
	Targets  content.TargetTable
	History  audit.Log
	Metrics  Recorder
	Logger   *zap.Logger

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler

	CORSOrigins     []string
	MaxArchiveBytes int64
	InspectTimeout  time.Duration
	RequestTimeout  time.Duration
}

func NewRouter(d Deps) chi.Router {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Noop{}
	}
	if d.History == nil {
		d.History = audit.Nop{}
	}
	if d.Targets == nil {
		d.Targets = content.DefaultTargets()
	}
	if d.MaxArchiveBytes <= 0 {
		d.MaxArchiveBytes = archive.MaxArchiveSize
	}
	if d.InspectTimeout <= 0 {
		d.InspectTimeout = 30 * time.Second
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.Requests(d.Logger, d.Metrics), middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", authmw.LoginHandler(d.Auth))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth))

		pr.With(rbac.Require(rbac.PermTargetsView)).
			Get("/targets", TargetsHandler(d.Targets))
		pr.With(rbac.Require(rbac.PermArchiveInspect)).
			Post("/archives/inspect", InspectArchiveHandler(d.MaxArchiveBytes, d.InspectTimeout, d.Metrics))
		// operators see the log they write to even without history:view
		pr.With(rbac.RequireAny(rbac.PermHistoryView, rbac.PermPayloadHandoff)).
			Get("/handoffs", HistoryHandler(d.History))

		pr.Route("/sessions", func(sr chi.Router) {
			sr.With(rbac.Require(rbac.PermSessionCreate)).
				Post("/", CreateSessionHandler(d.Sessions))
			sr.With(rbac.Require(rbac.PermSessionView)).
				Get("/", ListSessionsHandler(d.Sessions))

			sr.Route("/{id}", func(ir chi.Router) {
				ir.With(rbac.Require(rbac.PermSessionView)).Get("/", GetSessionHandler(d.Sessions))
				ir.With(rbac.Require(rbac.PermSessionView)).Get("/payload", PayloadHandler(d.Sessions))

				ir.Group(func(er chi.Router) {
					er.Use(rbac.Require(rbac.PermSessionEdit))
					er.Delete("/", DeleteSessionHandler(d.Sessions))
					er.Put("/selection", SwitchSelectionHandler(d.Sessions))
					er.Post("/archive", SelectArchiveHandler(d.Sessions, d.MaxArchiveBytes))
					er.Post("/upload", AcknowledgeUploadHandler(d.Sessions))
					er.Put("/destination", SetDestinationHandler(d.Sessions))
					er.Put("/metadata", SetMetadataHandler(d.Sessions))
					er.Put("/sheet", SetSheetHandler(d.Sessions))
					er.Post("/subsheets/{name}", ToggleSubsheetHandler(d.Sessions))
				})

				ir.With(rbac.RequireAll(rbac.PermSessionView, rbac.PermPayloadHandoff)).
					Post("/handoff", HandoffHandler(d.Sessions, d.History, d.Metrics, d.Logger))
			})
		})
	})

	return r
}
