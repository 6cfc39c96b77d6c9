package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/barrybecker4/applets-sub001/internal/analysis"
	"github.com/barrybecker4/applets-sub001/internal/audit"
	"github.com/barrybecker4/applets-sub001/internal/auth"
	"github.com/barrybecker4/applets-sub001/internal/middleware"
	"github.com/barrybecker4/applets-sub001/internal/models"
)

const winningPosition = `{"rows":3,"cols":3,"k":3,"moves":[{"row":0,"col":0},{"row":1,"col":0},{"row":0,"col":1},{"row":1,"col":1}]}`

type testServer struct {
	*httptest.Server
	svc *analysis.Service
	hub *Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := analysis.DefaultConfig()
	cfg.Search.PausePollMillis = 5
	cfg.ProgressInterval = 10 * time.Millisecond
	svc, err := analysis.NewService(cfg, analysis.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	var clients []auth.Client
	for _, id := range []string{"alpha", "beta"} {
		hash, err := bcrypt.GenerateFromPassword([]byte(id+"-secret"), bcrypt.MinCost)
		require.NoError(t, err)
		clients = append(clients, auth.Client{ID: id, Name: id, SecretHash: string(hash)})
	}
	jwtService := auth.NewJWTService("0123456789abcdef0123456789abcdef", time.Hour)

	hub := NewHub(nil)
	go hub.Run()
	relay := NewEventRelay(hub, nil)
	svc.AddListener(relay.OnEvent)

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000})
	router := mux.NewRouter()
	RegisterRoutes(router, Routes{
		Auth:        NewAuthHandler(auth.NewClientRegistry(clients), jwtService, audit.NewLogger(nil)),
		Analyses:    NewAnalysisHandler(svc, 10*time.Second),
		WebSocket:   NewWebSocketHandler(hub, svc, ""),
		AuthMW:      middleware.NewAuthMiddleware(jwtService),
		RateLimiter: limiter,
		Health:      Health(nil),
	})
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Close(ctx)
		relay.Close()
		hub.Stop()
		limiter.Stop()
	})
	return &testServer{Server: srv, svc: svc, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) token(t *testing.T, client string) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/auth/token", "", `{"clientId":"`+client+`","clientSecret":"`+client+`-secret"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tr TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tr))
	assert.Equal(t, "Bearer", tr.TokenType)
	assert.Equal(t, int64(3600), tr.ExpiresIn)
	return tr.AccessToken
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestIssueToken(t *testing.T) {
	s := newTestServer(t)
	assert.NotEmpty(t, s.token(t, "alpha"))

	resp := s.do(t, http.MethodPost, "/api/auth/token", "", `{"clientId":"alpha","clientSecret":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid client credentials", decode[ErrorResponse](t, resp).Error)

	resp = s.do(t, http.MethodPost, "/api/auth/token", "", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalysesRequireToken(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodPost, "/api/analyses", "", `{"game":`+winningPosition+`}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = s.do(t, http.MethodGet, "/api/analyses/anything", "bogus", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAnalysisLifecycle(t *testing.T) {
	s := newTestServer(t)
	alpha := s.token(t, "alpha")
	beta := s.token(t, "beta")

	resp := s.do(t, http.MethodPost, "/api/analyses", alpha, `{"game":`+winningPosition+`,"startPaused":true}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	created := decode[models.Analysis](t, resp)
	assert.Equal(t, "alpha", created.ClientID)
	assert.Equal(t, models.AnalysisPaused, created.Status)
	assert.Equal(t, "/api/analyses/"+created.AnalysisID, resp.Header.Get("Location"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	path := "/api/analyses/" + created.AnalysisID
	resp = s.do(t, http.MethodGet, path, beta, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "other clients cannot see it")
	resp = s.do(t, http.MethodPost, path+"/cancel", beta, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodPost, path+"/resume", alpha, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.AnalysisRunning, decode[models.Analysis](t, resp).Status)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := s.svc.Wait(ctx, created.AnalysisID)
	require.NoError(t, err)

	resp = s.do(t, http.MethodGet, path, alpha, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	done := decode[models.Analysis](t, resp)
	assert.Equal(t, models.AnalysisComplete, done.Status)
	require.NotNil(t, done.BestMove)
	assert.Equal(t, 0, done.BestMove.To.Row)
	assert.Equal(t, 2, done.BestMove.To.Col)

	resp = s.do(t, http.MethodPost, path+"/pause", alpha, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = s.do(t, http.MethodGet, "/api/analyses/missing", alpha, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateAnalysisRejectsBadPositions(t *testing.T) {
	s := newTestServer(t)
	alpha := s.token(t, "alpha")

	resp := s.do(t, http.MethodPost, "/api/analyses", alpha, `{"game":{"rows":2,"cols":2,"k":5}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[ErrorResponse](t, resp).Error, "invalid analysis request")

	resp = s.do(t, http.MethodPost, "/api/analyses", alpha, `[]`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunBatch(t *testing.T) {
	s := newTestServer(t)
	alpha := s.token(t, "alpha")

	body := `{"positions":[{"game":` + winningPosition + `},{"game":{"rows":1,"cols":1,"k":3}}]}`
	resp := s.do(t, http.MethodPost, "/api/analyses/batch", alpha, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := decode[BatchResponse](t, resp).Results
	require.Len(t, results, 2)
	require.NotNil(t, results[0].BestMove)
	assert.Equal(t, 2, results[0].BestMove.To.Col)
	assert.NotEmpty(t, results[1].Error)

	resp = s.do(t, http.MethodPost, "/api/analyses/batch", alpha, `{"positions":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebSocketStreamsResult(t *testing.T) {
	s := newTestServer(t)
	alpha := s.token(t, "alpha")

	resp := s.do(t, http.MethodPost, "/api/analyses", alpha, `{"game":`+winningPosition+`,"startPaused":true,"streamTree":true}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := decode[models.Analysis](t, resp).AnalysisID

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws/analyses/" + id + "?token=" + alpha
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var first analysis.Event
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, analysis.EventStatus, first.Type)
	assert.Equal(t, models.AnalysisPaused, first.Status)
	assert.Equal(t, 1, s.hub.Watchers(id))

	resp = s.do(t, http.MethodPost, "/api/analyses/"+id+"/resume", alpha, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sawTree := false
	for {
		var ev analysis.Event
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == analysis.EventTree {
			sawTree = true
		}
		if ev.Type == analysis.EventResult {
			assert.Equal(t, models.AnalysisComplete, ev.Status)
			break
		}
	}
	assert.True(t, sawTree)
}

func TestWebSocketRejectsOtherClients(t *testing.T) {
	s := newTestServer(t)
	alpha := s.token(t, "alpha")
	beta := s.token(t, "beta")

	resp := s.do(t, http.MethodPost, "/api/analyses", alpha, `{"game":`+winningPosition+`,"startPaused":true}`)
	id := decode[models.Analysis](t, resp).AnalysisID

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws/analyses/" + id + "?token=" + beta
	_, wsResp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, wsResp)
	assert.Equal(t, http.StatusNotFound, wsResp.StatusCode)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mongo  Pinger
		status int
		body   HealthResponse
	}{
		{"no database", nil, http.StatusOK, HealthResponse{Status: "ok", MongoDB: "disabled"}},
		{"database up", pinger{}, http.StatusOK, HealthResponse{Status: "ok", MongoDB: "ok"}},
		{"database down", pinger{errors.New("down")}, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", MongoDB: "unreachable"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Health(tc.mongo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tc.status, rec.Code)
			var body HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.body, body)
		})
	}
}

func TestEventRelayPublishesAllButTree(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	var published []string
	relay := NewEventRelay(hub, func(id string, msg []byte) {
		var ev analysis.Event
		if assert.NoError(t, json.Unmarshal(msg, &ev)) {
			published = append(published, id+":"+string(ev.Type))
		}
	})
	relay.OnEvent(analysis.Event{Type: analysis.EventProgress, AnalysisID: "a"})
	relay.OnEvent(analysis.Event{Type: analysis.EventTree, AnalysisID: "a"})
	relay.OnEvent(analysis.Event{Type: analysis.EventResult, AnalysisID: "a"})
	relay.Close()

	assert.Equal(t, []string{"a:progress", "a:result"}, published)
}

func TestRespondWithJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	respondWithJSON(rec, http.StatusTeapot, map[string]int{"n": 1})
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("{")))
}
