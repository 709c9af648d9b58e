// Package server provides the HTTP REST API for the startup pipeline
// tracker.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/venturedesk/pipeline/internal/config"
	"github.com/venturedesk/pipeline/internal/db"
	"github.com/venturedesk/pipeline/internal/deck"
	"github.com/venturedesk/pipeline/internal/importer"
	"github.com/venturedesk/pipeline/internal/mail"
	"github.com/venturedesk/pipeline/internal/server/middleware"
	"github.com/venturedesk/pipeline/internal/server/ratelimit"
	"github.com/venturedesk/pipeline/internal/workflow"
)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	db          *db.DB
	importer    *importer.Importer
	engine      *workflow.Engine
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	userService *UserService
	authHandler *AuthHandler

	// extractor is nil when GEMINI_API_KEY is not set; the pitch deck
	// endpoint then answers 503.
	extractor  *deck.Extractor
	deckClient *deck.GeminiClient
}

// New creates a new server instance
func New(cfg *config.ServerConfig) (*Server, error) {
	// Connect to database
	database, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Server{db: database}

	// Initialize rate limiter
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())

	// Initialize authentication services
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	s.userService = NewUserService(database, passwordConfig)

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	s.jwtService = NewJWTService(jwtConfig)
	s.authHandler = NewAuthHandler(s.userService, s.jwtService)

	// Import pipeline: imported startups land on the configured default
	// stage.
	defaultStatus, err := database.GetStatusByName(context.Background(), cfg.DefaultStatusName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up default status: %w", err)
	}
	if defaultStatus == nil {
		return nil, fmt.Errorf("default status %q not found (run migrate first)", cfg.DefaultStatusName)
	}
	s.importer = importer.New(database, importer.Config{
		DefaultStatusID:     defaultStatus.ID,
		FallbackDescription: cfg.FallbackDescription,
	})

	// Workflow engine over the same database plus the configured mailer.
	var mailer workflow.Mailer
	if cfg.SMTPHost != "" {
		mailer, err = mail.NewSMTP(mail.Config{
			Host:          cfg.SMTPHost,
			Port:          cfg.SMTPPort,
			Username:      cfg.SMTPUsername,
			Password:      cfg.SMTPPassword,
			From:          cfg.SMTPFrom,
			TestMode:      cfg.EmailTestMode,
			TestRecipient: cfg.TestRecipient,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create mailer: %w", err)
		}
	} else {
		log.Printf("[server] SMTP not configured, send_email actions will fail and log")
		mailer = mail.Disabled{}
	}
	s.engine = workflow.NewEngine(db.NewEngineStore(database), mailer)

	// Pitch deck extraction rides on Gemini when a key is configured.
	if cfg.GeminiAPIKey != "" {
		s.deckClient, err = deck.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.extractor = deck.NewExtractor(s.deckClient)
	} else {
		log.Printf("[server] GEMINI_API_KEY not set, pitch deck extraction disabled")
	}

	// Setup router
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Auth endpoints (no token required)
	mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /auth/login", s.authHandler.Login)

	// Everything else requires a valid token.
	authed := http.NewServeMux()

	authed.HandleFunc("PUT /auth/password", s.handleUpdatePassword)

	// Status endpoints
	authed.HandleFunc("GET /statuses", s.handleListStatuses)
	authed.HandleFunc("POST /statuses", s.handleCreateStatus)
	authed.HandleFunc("PUT /statuses/{id}", s.handleUpdateStatus)
	authed.HandleFunc("DELETE /statuses/{id}", s.handleDeleteStatus)

	// Startup endpoints
	authed.HandleFunc("GET /startups", s.handleListStartups)
	authed.HandleFunc("POST /startups", s.handleCreateStartup)
	authed.HandleFunc("GET /startups/{id}", s.handleGetStartup)
	authed.HandleFunc("PUT /startups/{id}", s.handleUpdateStartup)
	authed.HandleFunc("DELETE /startups/{id}", s.handleDeleteStartup)
	authed.HandleFunc("PUT /startups/{id}/status", s.handleMoveStartup)
	authed.HandleFunc("PUT /startups/{id}/field", s.handleUpdateStartupField)
	authed.HandleFunc("POST /startups/{id}/pitch-deck", s.handleExtractPitchDeck)
	authed.HandleFunc("GET /startups/{id}/history", s.handleStartupHistory)
	authed.HandleFunc("GET /startups/{id}/workflow-logs", s.handleStartupWorkflowLogs)

	// Task endpoints
	authed.HandleFunc("GET /tasks", s.handleListTasks)
	authed.HandleFunc("POST /tasks", s.handleCreateTask)
	authed.HandleFunc("GET /tasks/{id}", s.handleGetTask)
	authed.HandleFunc("PUT /tasks/{id}", s.handleUpdateTask)
	authed.HandleFunc("DELETE /tasks/{id}", s.handleDeleteTask)

	// Import endpoints
	authed.HandleFunc("POST /import/analyze", s.handleImportAnalyze)
	authed.HandleFunc("POST /import/run", s.handleImportRun)
	authed.HandleFunc("POST /import/error-report", s.handleImportErrorReport)
	authed.HandleFunc("GET /import/template", s.handleImportTemplate)

	// Workflow endpoints
	authed.HandleFunc("GET /workflows", s.handleListWorkflows)
	authed.HandleFunc("POST /workflows", s.handleCreateWorkflow)
	authed.HandleFunc("GET /workflows/{id}", s.handleGetWorkflow)
	authed.HandleFunc("PUT /workflows/{id}", s.handleUpdateWorkflow)
	authed.HandleFunc("DELETE /workflows/{id}", s.handleDeleteWorkflow)
	authed.HandleFunc("PUT /workflows/{id}/active", s.handleSetWorkflowActive)
	authed.HandleFunc("GET /workflows/{id}/actions", s.handleListActions)
	authed.HandleFunc("POST /workflows/{id}/actions", s.handleAddAction)
	authed.HandleFunc("DELETE /workflow-actions/{id}", s.handleDeleteAction)
	authed.HandleFunc("GET /workflows/{id}/conditions", s.handleListConditions)
	authed.HandleFunc("POST /workflows/{id}/conditions", s.handleAddCondition)
	authed.HandleFunc("DELETE /workflow-conditions/{id}", s.handleDeleteCondition)
	authed.HandleFunc("POST /workflows/{id}/execute", s.handleExecuteWorkflow)
	authed.HandleFunc("GET /workflows/{id}/logs", s.handleWorkflowLogs)
	authed.HandleFunc("GET /workflow-logs", s.handleListWorkflowLogs)

	// User and role endpoints
	authed.HandleFunc("GET /users", s.handleListUsers)
	authed.HandleFunc("GET /users/{id}", s.handleGetUser)
	authed.HandleFunc("PUT /users/{id}", s.handleUpdateUser)
	authed.HandleFunc("DELETE /users/{id}", s.handleDeleteUser)
	authed.HandleFunc("PUT /users/{id}/roles", s.handleSetUserRoles)
	authed.HandleFunc("GET /roles", s.handleListRoles)
	authed.HandleFunc("POST /roles", s.handleCreateRole)
	authed.HandleFunc("PUT /roles/{id}", s.handleUpdateRole)
	authed.HandleFunc("DELETE /roles/{id}", s.handleDeleteRole)
	authed.HandleFunc("GET /roles/{id}/permissions", s.handleGetRolePermissions)
	authed.HandleFunc("PUT /roles/{id}/permissions", s.handleSetRolePermissions)

	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	guard := middleware.PageGuard(database)
	mux.Handle("/", auth(guard(authed)))

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // import runs can be slow
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.deckClient != nil {
		if err := s.deckClient.Close(); err != nil {
			log.Printf("[server] failed to close Gemini client: %v", err)
		}
	}

	s.db.Close()
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		if !allowed {
			s.setRateLimitHeaders(w, info)
			s.rateLimitResponse(w, info)
			return
		}

		s.setRateLimitHeaders(w, info)
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpdatePassword resolves the authenticated user and delegates to
// the auth handler.
func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	s.authHandler.UpdatePasswordWithUserID(w, r, userID)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// Uses the IP address from RemoteAddr; X-Forwarded-For would need a
// trusted proxy list.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
