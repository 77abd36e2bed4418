package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"okrdrift/internal/platform/logger"
	"okrdrift/internal/service"
	"okrdrift/internal/transport/rest/handler"
	"okrdrift/internal/transport/rest/middleware"
	"okrdrift/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	SessionService *service.SessionService
	Orchestrator   *service.Orchestrator
	WSHub          *ws.Hub
	Log            *logger.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(c.SessionService, c.Log)
	analysisHandler := handler.NewAnalysisHandler(c.Orchestrator, c.SessionService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.SessionService, c.Log)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/analysis/health", analysisHandler.Health).Methods("GET", "OPTIONS")
	v1.HandleFunc("/students/{studentId}/reports", analysisHandler.Reports).Methods("GET", "OPTIONS")
	v1.HandleFunc("/students/{studentId}/profile", analysisHandler.Profile).Methods("GET", "OPTIONS")
	v1.HandleFunc("/diagnostics/outcomes", analysisHandler.Outcomes).Methods("GET", "OPTIONS")
	v1.HandleFunc("/diagnostics/outcomes/{outcomeId}", analysisHandler.Outcome).Methods("GET", "OPTIONS")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/sessions/{id}", wsHandler.SessionWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Session routes (require the session's token)
	sessionRoutes := v1.PathPrefix("/sessions/{id}").Subrouter()
	sessionRoutes.Use(authMW.RequireSession)

	sessionRoutes.HandleFunc("", sessionHandler.Get).Methods("GET", "OPTIONS")
	sessionRoutes.HandleFunc("/student", sessionHandler.ProvideStudent).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/back", sessionHandler.Back).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/submit", sessionHandler.Submit).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/tab", sessionHandler.SelectTab).Methods("PUT", "OPTIONS")
	sessionRoutes.HandleFunc("/view", sessionHandler.View).Methods("GET", "OPTIONS")
	sessionRoutes.HandleFunc("/roadmap/toggle", sessionHandler.ToggleMonth).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/reset", sessionHandler.Reset).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
