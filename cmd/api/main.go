package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/devplane-io/devplane/internal/config"
	"github.com/devplane-io/devplane/internal/db"
	"github.com/devplane-io/devplane/internal/handlers"
	"github.com/devplane-io/devplane/internal/metrics"
	mw "github.com/devplane-io/devplane/internal/middleware"
	"github.com/devplane-io/devplane/internal/models"
	"github.com/devplane-io/devplane/internal/oncall"
	"github.com/devplane-io/devplane/internal/provision"
	"github.com/devplane-io/devplane/internal/repo"
	"github.com/devplane-io/devplane/internal/scheduler"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	setupLogger(cfg.LogFormat)

	if cfg.Env == "prod" && cfg.JWTSecret == "supersecretkey" {
		slog.Error("JWT_SECRET must be set in prod")
		os.Exit(1)
	}

	database, err := db.Connect(cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPass)
	if err != nil {
		slog.Error("connect database", "error", err)
		os.Exit(1)
	}
	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)

	if err := db.Run(db.URL(cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPass)); err != nil {
		slog.Error("run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database ready")

	var policy *oncall.Policy
	if cfg.OnCallPolicyPath != "" {
		policy, err = oncall.Load(cfg.OnCallPolicyPath)
		if err != nil {
			slog.Error("load on-call policy", "path", cfg.OnCallPolicyPath, "error", err)
			os.Exit(1)
		}
		slog.Info("on-call policy loaded", "services", policy.Services())
	}

	// The open-incident gauge and in-flight provisioning jobs do not
	// survive a restart; resync both from the database.
	if n, err := repo.NewIncidentRepo(database).CountOpen(context.Background()); err != nil {
		slog.Error("count open incidents", "error", err)
	} else {
		metrics.IncidentsOpen.Set(float64(n))
	}

	envRepo := repo.NewEnvironmentRepo(database)
	if n, err := envRepo.FailStranded(context.Background(), "provisioning interrupted by server restart"); err != nil {
		slog.Error("sweep stranded environments", "error", err)
	} else if n > 0 {
		slog.Warn("marked stranded environments failed", "count", n)
	}

	engine := provision.NewEngine(envRepo, provision.KubectlRunner{Path: cfg.KubectlPath})

	scheduler.Run(repo.NewScheduleRepo(database), &scheduler.Snapshotter{
		Deployments: repo.NewDeploymentRepo(database),
		Incidents:   repo.NewIncidentRepo(database),
		Reports:     repo.NewReportRepo(database),
	})

	r := newRouter(database, cfg, engine, policy)

	addr := ":" + cfg.Port
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		slog.Info("starting API with TLS", "addr", addr)
		err = http.ListenAndServeTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile, r)
	} else {
		slog.Info("starting API", "addr", addr)
		err = http.ListenAndServe(addr, r)
	}
	if err != nil {
		slog.Error("server", "error", err)
		os.Exit(1)
	}
}

func setupLogger(format string) {
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		h = slog.NewTextHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(h))
}

// newRouter builds the full API router. Split from main so tests can stand
// up the whole chain against a mock database.
func newRouter(database *sql.DB, cfg config.Config, engine *provision.Engine, policy *oncall.Policy) chi.Router {
	userRepo := repo.NewUserRepo(database)
	assetRepo := repo.NewAssetRepo(database)
	serviceRepo := repo.NewServiceRepo(database)
	deployRepo := repo.NewDeploymentRepo(database)
	incidentRepo := repo.NewIncidentRepo(database)
	envRepo := repo.NewEnvironmentRepo(database)
	scheduleRepo := repo.NewScheduleRepo(database)
	reportRepo := repo.NewReportRepo(database)
	auditRepo := repo.NewAuditRepo(database)

	auth := &handlers.AuthHandler{
		UserRepo:    userRepo,
		Secret:      []byte(cfg.JWTSecret),
		TokenExpiry: time.Duration(cfg.JWTExpireHours) * time.Hour,
	}
	users := &handlers.UserHandler{Repo: userRepo, Audit: auditRepo}
	catalog := &handlers.CatalogHandler{Repo: assetRepo, Audit: auditRepo}
	services := &handlers.ServiceHandler{Repo: serviceRepo, Audit: auditRepo}
	deploys := &handlers.DeploymentHandler{Repo: deployRepo, Services: serviceRepo}
	incidents := &handlers.IncidentHandler{Repo: incidentRepo, Services: serviceRepo, Audit: auditRepo}
	envs := &handlers.EnvironmentHandler{Repo: envRepo, Engine: engine, Audit: auditRepo}
	doraH := &handlers.DoraHandler{Deployments: deployRepo, Incidents: incidentRepo, Services: serviceRepo, Reports: reportRepo}
	onCall := &handlers.OnCallHandler{Policy: policy}
	schedules := &handlers.ScheduleHandler{Repo: scheduleRepo, Services: serviceRepo, Audit: auditRepo}
	audit := &handlers.AuditHandler{Repo: auditRepo}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.SecurityHeaders(cfg.TLSCertFile != ""))
	r.Use(mw.CORS(cfg.CORSAllowedOrigins))
	r.Use(mw.MaxBytes(mw.DefaultMaxBodyBytes))
	r.Use(mw.NewIPRateLimiter(100, 50).Middleware)
	r.Use(mw.Prometheus)
	r.Use(mw.RequestLog)
	r.Use(mw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method("GET", "/metrics", promhttp.Handler())

	// Auth endpoints get a tighter per-IP limit.
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthRateLimiter().Middleware)
		r.Post("/auth/register", auth.Register)
		r.Post("/auth/login", auth.Login)
	})

	// Authenticated, read-only (any role).
	r.Group(func(r chi.Router) {
		r.Use(mw.JWT([]byte(cfg.JWTSecret)))

		r.Get("/assets", catalog.ListAssets)
		r.Get("/assets/{id}", catalog.GetAsset)
		r.Get("/services", services.ListServices)
		r.Get("/services/{id}", services.GetService)
		r.Get("/deployments", deploys.ListDeployments)
		r.Get("/incidents", incidents.ListIncidents)
		r.Get("/incidents/{id}", incidents.GetIncident)
		r.Get("/incidents/{id}/postmortem", incidents.Postmortem)
		r.Get("/environments", envs.ListEnvironments)
		r.Get("/environments/{id}", envs.GetEnvironment)
		r.Get("/dora", doraH.Metrics)
		r.Get("/reports", doraH.ListReports)
		r.Get("/oncall", onCall.Current)
		r.Get("/schedules", schedules.ListSchedules)
		r.Get("/schedules/{id}", schedules.GetSchedule)
	})

	// Mutations require the editor role.
	r.Group(func(r chi.Router) {
		r.Use(mw.JWT([]byte(cfg.JWTSecret)))
		r.Use(mw.RequireRole(models.RoleEditor))

		r.Post("/assets", catalog.RegisterAsset)
		r.Put("/assets/{id}", catalog.UpdateAsset)
		r.Delete("/assets/{id}", catalog.DeleteAsset)
		r.Post("/assets/{id}/heartbeat", catalog.HeartbeatAsset)

		r.Post("/services", services.CreateService)
		r.Put("/services/{id}", services.UpdateService)
		r.Delete("/services/{id}", services.DeleteService)

		r.Post("/deployments", deploys.RecordDeployment)

		r.Post("/incidents", incidents.OpenIncident)
		r.Post("/incidents/{id}/updates", incidents.UpdateIncident)

		r.Post("/environments", envs.RequestEnvironment)
		r.Post("/environments/{id}/cancel", envs.CancelEnvironment)

		r.Post("/schedules", schedules.CreateSchedule)
		r.Put("/schedules/{id}", schedules.UpdateSchedule)
		r.Delete("/schedules/{id}", schedules.DeleteSchedule)
	})

	// User administration and the audit log are admin only.
	r.Group(func(r chi.Router) {
		r.Use(mw.JWT([]byte(cfg.JWTSecret)))
		r.Use(mw.RequireRole(models.RoleAdmin))

		r.Get("/users", users.ListUsers)
		r.Post("/users", users.CreateUser)
		r.Delete("/users/{id}", users.DeleteUser)
		r.Get("/audit", audit.ListAudit)
	})

	return r
}
