package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/andrewpaige1/doomdeck-api/billing"
	"github.com/andrewpaige1/doomdeck-api/config"
	"github.com/andrewpaige1/doomdeck-api/generation"
	"github.com/andrewpaige1/doomdeck-api/handlers"
	"github.com/andrewpaige1/doomdeck-api/middleware"
	"github.com/andrewpaige1/doomdeck-api/pdftext"
	"github.com/andrewpaige1/doomdeck-api/quota"
	"github.com/andrewpaige1/doomdeck-api/viewer"
	"github.com/andrewpaige1/doomdeck-api/webutil"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}
}

func runServe(parent context.Context, cc *commandContext) error {
	env, err := cc.ensureConfig()
	if err != nil {
		return err
	}
	db, err := cc.database()
	if err != nil {
		return err
	}

	router, err := newRouter(env, db)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return startServer(ctx, "0.0.0.0:"+env.Port, router)
}

func newRouter(env *config.Environment, db *gorm.DB) (http.Handler, error) {
	authMiddleware, err := middleware.EnsureValidToken(env)
	if err != nil {
		return nil, fmt.Errorf("configure authentication: %w", err)
	}
	syncUser := middleware.SyncUserMiddleware(db)

	videos := viewer.NewVideoPool(env.VideoDir, nil)
	if err := videos.Load(); err != nil {
		slog.Warn("newRouter: background videos unavailable", "dir", env.VideoDir, "error", err)
	}

	stripeClient := billing.NewStripeClient(env.Stripe.SecretKey, env.BaseURL)
	generator := generation.NewService(
		generation.NewBuilder(pdftext.NewExtractor("", env.PDFChunkSize)),
		generation.NewClient(generation.Config{
			APIKey:  env.OpenAI.APIKey,
			BaseURL: env.OpenAI.BaseURL,
			Model:   env.OpenAI.Model,
		}),
	)

	h := &handlers.DBHandler{
		DB:          db,
		Generator:   generator,
		Checkout:    stripeClient,
		Webhooks:    billing.NewWebhookProcessor(db, stripeClient, env.Stripe.WebhookSecret),
		Limiter:     quota.NewLimiter(db, env.Quota.Enabled, env.Quota.DailyLimit),
		Videos:      videos,
		AnalyticsID: env.AnalyticsID,

		TrustClientUserID: !middleware.AuthEnabled(env),
	}

	mux := http.NewServeMux()

	// Generation
	mux.HandleFunc("POST /api/flashcards", syncUser(webutil.MakeHandler(h.GenerateFlashcards)))

	// Chats and subjects
	mux.HandleFunc("GET /api/chats", webutil.MakeHandler(h.ListChats))
	mux.HandleFunc("GET /api/chats/{chatID}", webutil.MakeHandler(h.GetChat))
	mux.HandleFunc("GET /api/subjects", webutil.MakeHandler(h.ListSubjects))
	mux.HandleFunc("POST /api/subjects", webutil.MakeHandler(h.CreateSubject))

	// Billing
	mux.HandleFunc("POST /api/stripe", webutil.MakeHandler(h.CreateCheckoutSession))
	mux.HandleFunc("POST /api/stripe/webhook", webutil.MakeHandler(h.StripeWebhook))
	mux.HandleFunc("GET /api/users/me/subscription", syncUser(webutil.MakeHandler(h.GetSubscription)))

	// Viewer
	mux.HandleFunc("GET /api/videos", webutil.MakeHandler(h.ListVideos))
	mux.HandleFunc("GET /api/videos/random", webutil.MakeHandler(h.RandomVideo))
	mux.HandleFunc("POST /api/videos/{name}/preload", webutil.MakeHandler(h.PreloadVideo))
	mux.Handle("GET "+handlers.VideoPrefix, http.StripPrefix(handlers.VideoPrefix, http.FileServer(http.Dir(env.VideoDir))))

	mux.HandleFunc("GET /api/config", webutil.MakeHandler(h.ClientConfig))
	mux.HandleFunc("GET /healthz", webutil.MakeHandler(h.Healthz))

	// Configure CORS with specific options
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   env.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Stripe-Signature", "Idempotency-Key", "X-Requested-With", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(authMiddleware(mux))

	return chi.Chain(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Logger,
		chimiddleware.Recoverer,
	).Handler(corsHandler), nil
}

func startServer(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("startServer: listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("startServer: shutdown signal received, initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("startServer: server gracefully stopped")
	return nil
}
