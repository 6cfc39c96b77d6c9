package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status  string `json:"status"`
	MongoDB string `json:"mongodb"`
}

// Health returns 200 while the server can do its work. mongo may be nil
// when the server runs without persistence.
func Health(mongo Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", MongoDB: "disabled"}
		if mongo != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := mongo.Ping(ctx); err != nil {
				resp.Status = "degraded"
				resp.MongoDB = "unreachable"
				respondWithJSON(w, http.StatusServiceUnavailable, resp)
				return
			}
			resp.MongoDB = "ok"
		}
		respondWithJSON(w, http.StatusOK, resp)
	}
}
