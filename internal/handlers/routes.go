package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/barrybecker4/applets-sub001/internal/middleware"
)

// Routes bundles what RegisterRoutes mounts.
type Routes struct {
	Auth        *AuthHandler
	Analyses    *AnalysisHandler
	WebSocket   *WebSocketHandler
	AuthMW      *middleware.AuthMiddleware
	RateLimiter *middleware.RateLimiter
	Health      http.HandlerFunc
}

// RegisterRoutes mounts the API on router.
func RegisterRoutes(router *mux.Router, rt Routes) {
	router.Use(middleware.SecurityHeaders)

	// WebSocket routes
	ws := router.PathPrefix("/ws").Subrouter()
	ws.Use(rt.AuthMW.RequireAuth)
	ws.HandleFunc("/analyses/{id}", rt.WebSocket.HandleWebSocket).Methods("GET")

	// API routes
	api := router.PathPrefix("/api").Subrouter()

	// Auth routes (public, limited per IP)
	authApi := api.PathPrefix("/auth").Subrouter()
	authApi.Use(rt.RateLimiter.IPRateLimitMiddleware())
	authApi.HandleFunc("/token", rt.Auth.IssueToken).Methods("POST")

	// Analysis routes (protected, limited per client)
	analysisApi := api.PathPrefix("/analyses").Subrouter()
	analysisApi.Use(rt.AuthMW.RequireAuth)
	analysisApi.Use(rt.RateLimiter.ClientRateLimitMiddleware())
	analysisApi.HandleFunc("", rt.Analyses.CreateAnalysis).Methods("POST")
	analysisApi.HandleFunc("/batch", rt.Analyses.RunBatch).Methods("POST")
	analysisApi.HandleFunc("/{id}", rt.Analyses.GetAnalysis).Methods("GET")
	analysisApi.HandleFunc("/{id}/pause", rt.Analyses.PauseAnalysis).Methods("POST")
	analysisApi.HandleFunc("/{id}/resume", rt.Analyses.ResumeAnalysis).Methods("POST")
	analysisApi.HandleFunc("/{id}/cancel", rt.Analyses.CancelAnalysis).Methods("POST")

	// Health check
	router.HandleFunc("/health", rt.Health).Methods("GET")
}
