package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/barrybecker4/applets-sub001/internal/audit"
	"github.com/barrybecker4/applets-sub001/internal/auth"
)

type AuthHandler struct {
	clients    *auth.ClientRegistry
	jwtService *auth.JWTService
	audit      *audit.Logger
}

func NewAuthHandler(clients *auth.ClientRegistry, jwtService *auth.JWTService, auditLog *audit.Logger) *AuthHandler {
	return &AuthHandler{
		clients:    clients,
		jwtService: jwtService,
		audit:      auditLog,
	}
}

type TokenRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"` // seconds
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// IssueToken exchanges client credentials for an access token.
// POST /api/auth/token
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ClientID = strings.TrimSpace(req.ClientID)

	client, err := h.clients.Authenticate(req.ClientID, req.ClientSecret)
	if err != nil {
		h.audit.LogEvent(audit.EventTokenRejected, req.ClientID, r, "invalid credentials")
		respondWithError(w, http.StatusUnauthorized, "Invalid client credentials")
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(client.ID, client.Name)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to generate access token")
		return
	}
	h.audit.LogEvent(audit.EventTokenIssued, client.ID, r, "")

	respondWithJSON(w, http.StatusOK, TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.jwtService.GetAccessTTL().Seconds()),
	})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
