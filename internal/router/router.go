package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/onesoftuk/bugflow/internal/config"
	"github.com/onesoftuk/bugflow/internal/handlers"
	"github.com/onesoftuk/bugflow/internal/middleware"
	"github.com/onesoftuk/bugflow/internal/models"
	"github.com/onesoftuk/bugflow/internal/notify"
	"github.com/onesoftuk/bugflow/internal/repository"
	"github.com/onesoftuk/bugflow/internal/repository/postgres"
	"github.com/onesoftuk/bugflow/internal/service"
	"github.com/onesoftuk/bugflow/internal/workflow"
)

func New(log zerolog.Logger, db *pgxpool.Pool, blobs repository.BlobStore, cfg config.Config) http.Handler {
	// Repos
	ticketRepo := postgres.NewTicketRepo(db)
	userRepo := postgres.NewUserRepo(db)
	settingsRepo := postgres.NewSettingsRepo(db)
	emailLogRepo := postgres.NewEmailLogRepo(db)

	// Workflow + notifications
	dispatcher := notify.NewDispatcher(settingsRepo, emailLogRepo, notify.SMTPSender{}, log)
	engine := workflow.NewEngine(ticketRepo, userRepo, blobs, dispatcher, workflow.Limits{
		AllowedMimeTypes: cfg.AllowedMimeTypes,
		MaxFileSize:      cfg.MaxFileSize,
		MaxPerTicket:     cfg.MaxPerTicket,
	}, log)

	authSvc := service.NewAuthService(userRepo, cfg.SessionSecret)

	// Handlers
	ah := handlers.NewAuthHTTP(authSvc, userRepo)
	th := handlers.NewTicketHTTP(engine, userRepo)
	fh := handlers.NewAttachmentHTTP(engine, userRepo, cfg.MaxFileSize*int64(cfg.MaxPerTicket))
	adh := handlers.NewAdminHTTP(ticketRepo, userRepo, settingsRepo, emailLogRepo, dispatcher)

	return Build(log, cfg, ah, th, fh, adh)
}

// Build assembles the route tree from already-wired handlers; tests use it
// with in-memory stores.
func Build(log zerolog.Logger, cfg config.Config, ah *handlers.AuthHTTP, th *handlers.TicketHTTP, fh *handlers.AttachmentHTTP, adh *handlers.AdminHTTP) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Origin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(httprate.LimitByIP(200, time.Minute))
	r.Use(middleware.WithAuth(log, cfg))

	// Health
	r.Get("/healthz", handlers.Health())

	// Session
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", ah.Register())
		r.Post("/login", ah.Login())
		r.Post("/logout", ah.Logout())
		r.Get("/me", ah.Me())
	})

	// Tickets
	r.Route("/api/tickets", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", th.List())
		r.Post("/", th.Create())
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", th.Get())
			r.Patch("/status", th.ChangeStatus())
			r.Patch("/assign", th.Assign())
			r.Delete("/", th.Delete())
			r.Get("/comments", th.ListComments())
			r.Post("/comments", th.AddComment())
			r.Get("/history", th.History())
			r.Get("/attachments", fh.List())
			r.Post("/attachments", fh.Upload())
		})
	})
	r.With(middleware.RequireAuth).Get("/api/attachments/{id}/download", fh.Download())

	// Admin
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.RequireRoles(models.RoleAdmin))
		r.Get("/tickets", adh.Tickets())
		r.Get("/users", adh.Users())
		r.Get("/devs", adh.Devs())
		r.Patch("/users/{id}/role", adh.UpdateUserRole())
		r.Patch("/users/{id}/active", adh.SetUserActive())
		r.Get("/summary", adh.Summary())
		r.Get("/settings", adh.GetSettings())
		r.Put("/settings", adh.UpdateSettings())
		r.Post("/settings/test-email", adh.TestEmail())
		r.Get("/email-logs", adh.EmailLogs())
	})

	return r
}
