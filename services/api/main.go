package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/visaflow/internal/config"
	"github.com/visaflow/internal/filestore"
	"github.com/visaflow/internal/handler"
	"github.com/visaflow/internal/logger"
	"github.com/visaflow/internal/middleware"
	"github.com/visaflow/internal/model"
	"github.com/visaflow/internal/repository"
	"github.com/visaflow/internal/service"
	"github.com/visaflow/internal/startup"
	"github.com/visaflow/internal/storage"
	"github.com/visaflow/internal/storage/memory"
	"github.com/visaflow/migrations"
)

func main() {
	logger.SetPrefix("api")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL and in-memory token store (no external deps required)")
	flag.Parse()

	logger.Info("starting API service")
	cfg := config.Load()

	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		var err error
		embeddedDB, err = startEmbeddedPostgres()
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			os.Exit(1)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	poolCfg.MinConns = 4

	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second, "")
	defer pool.Close()

	runMigrations(pool)
	if *migrate && !*dev {
		return
	}
	logger.Info("database connected, migrations applied")

	seedAdmin(pool, cfg)

	var tokenStore storage.TokenStore
	if *dev {
		tokenStore = memory.New()
	} else {
		tokenStore = startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second, "")
	}
	defer tokenStore.Close()

	userRepo := repository.NewUserRepository(pool)
	officeRepo := repository.NewOfficeRepository(pool)
	visaRepo := repository.NewVisaRepository(pool)
	docRepo := repository.NewDocumentRepository(pool)
	payRepo := repository.NewPaymentRepository(pool)
	chatRepo := repository.NewChatRepository(pool)
	notifRepo := repository.NewNotificationRepository(pool)

	authSvc := service.NewAuthService(userRepo, officeRepo, tokenStore)
	chatSvc := service.NewChatService(pool, visaRepo, chatRepo, notifRepo)
	visaSvc := service.NewVisaService(pool, visaRepo, officeRepo, docRepo, payRepo, userRepo, chatSvc, cfg.VisaFee)
	paySvc := service.NewPaymentService(pool, visaRepo, payRepo, chatRepo, chatSvc, cfg.VisaFee)
	docSvc := service.NewDocumentService(pool, visaRepo, docRepo, cfg.RequiredDocuments)
	files := filestore.New(cfg.UploadDir, cfg.MaxUploadSize)

	authH := handler.NewAuthHandler(authSvc)
	visaH := handler.NewVisaHandler(visaSvc)
	officeH := handler.NewOfficeHandler(visaSvc)
	docH := handler.NewDocumentHandler(docSvc, files)
	payH := handler.NewPaymentHandler(paySvc)
	chatH := handler.NewChatHandler(chatSvc)
	fileH := handler.NewFileHandler(files)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(middleware.RecoverJSON)
	r.Use(chimw.Compress(5))
	r.Use(middleware.RequestLog)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })
	r.Post("/api/auth/register", authH.Register)
	r.Post("/api/auth/login", authH.Login)
	r.Get("/api/files/{filename}", fileH.Serve)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(authSvc))
		r.Post("/api/auth/logout", authH.Logout)
		r.Get("/api/users/me", authH.Me)
		r.Put("/api/users/me", authH.UpdateMe)

		r.Post("/api/visa/requests", visaH.Create)
		r.Get("/api/visa/requests", visaH.List)
		r.Get("/api/visa/requests/{id}", visaH.Details)
		r.Put("/api/visa/requests/{id}/status", visaH.UpdateStatus)
		r.Put("/api/visa/requests/{id}/assign-office", visaH.AssignOffice)
		r.Post("/api/visa/requests/{id}/join-requests", visaH.RequestJoin)

		r.Post("/api/visa/requests/{id}/documents", docH.Upload)
		r.Get("/api/visa/requests/{id}/documents", docH.List)

		r.Post("/api/visa/requests/{id}/payment/screenshot", payH.SubmitScreenshot)
		r.Post("/api/visa/requests/{id}/payment", payH.Submit)
		r.Post("/api/visa/requests/{id}/payment/verify", payH.Review)
		r.Get("/api/visa/requests/{id}/payment", payH.Details)
		r.Get("/api/payments/statistics", payH.Statistics)

		r.Get("/api/visa/requests/{id}/messages", chatH.Thread)
		r.Post("/api/visa/requests/{id}/messages", chatH.Send)
		r.Post("/api/visa/requests/{id}/messages/system", chatH.SendSystem)
		r.Put("/api/visa/requests/{id}/messages/read", chatH.MarkRead)
		r.Get("/api/notifications", chatH.Notifications)

		r.Get("/api/offices/available", officeH.Available)
		r.Get("/api/offices/{id}", officeH.Get)

		r.Post("/api/files/upload", fileH.Upload)
		r.Delete("/api/files/{filename}", fileH.Delete)
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	srvWg.Wait()
	logger.Info("server goroutine exited")
}

func runMigrations(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		logger.Errorf("read migrations: %v", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := migrations.Files.ReadFile(name)
		if err != nil {
			logger.Errorf("read migration %s: %v", name, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			logger.Errorf("run migration %s: %v", name, err)
			os.Exit(1)
		}
	}
	logger.Info("migrations applied")
}

// seedAdmin создаёт административный аккаунт из ADMIN_EMAIL/ADMIN_PASSWORD,
// если его ещё нет. Админы не регистрируются через API.
func seedAdmin(pool *pgxpool.Pool, cfg *config.Config) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userRepo := repository.NewUserRepository(pool)
	if _, err := userRepo.GetByEmail(ctx, cfg.AdminEmail); err == nil {
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		logger.Errorf("seed admin: lookup: %v", err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Errorf("seed admin: hash: %v", err)
		return
	}
	admin := &model.User{
		ID:           uuid.New().String(),
		Name:         "Administrator",
		Email:        cfg.AdminEmail,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		logger.Errorf("seed admin: create: %v", err)
		return
	}
	logger.Infof("seed admin: created %s", cfg.AdminEmail)
}

func startEmbeddedPostgres() (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "visaflow"
		password = "visaflow_secret"
		database = "visaflow"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	return db, nil
}
