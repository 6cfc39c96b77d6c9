package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/barrybecker4/applets-sub001/internal/analysis"
	"github.com/barrybecker4/applets-sub001/internal/metrics"
	"github.com/barrybecker4/applets-sub001/internal/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

var wsLogger = log.With().Str("component", "websocket").Logger()

// Hub maintains active connections and broadcasts messages
type Hub struct {
	// Map of analysisId -> set of connections
	analyses map[string]map[*Client]bool
	mu       sync.RWMutex
	metrics  *metrics.Metrics

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}
}

type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	analysisID string
	clientID   string
	send       chan []byte
}

type BroadcastMessage struct {
	AnalysisID string
	Message    []byte
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		analyses:   make(map[string]map[*Client]bool),
		metrics:    m,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, sendBuffer),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.analyses[client.analysisID] == nil {
				h.analyses[client.analysisID] = make(map[*Client]bool)
			}
			h.analyses[client.analysisID][client] = true
			h.mu.Unlock()
			h.metrics.ClientConnected()
			wsLogger.Debug().Str("analysis", client.analysisID).Str("client", client.clientID).Msg("client registered")

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*Client
			for client := range h.analyses[msg.AnalysisID] {
				select {
				case client.send <- msg.Message:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range slow {
				wsLogger.Warn().Str("analysis", client.analysisID).Msg("dropping slow client")
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.analyses[client.analysisID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.analyses, client.analysisID)
	}
	h.metrics.ClientDisconnected()
	wsLogger.Debug().Str("analysis", client.analysisID).Str("client", client.clientID).Msg("client unregistered")
}

// Stop ends Run. Connections are left to time out.
func (h *Hub) Stop() {
	close(h.done)
}

// BroadcastToAnalysis queues message for every local connection watching
// the analysis. It has the eventbus.DeliverFunc signature.
func (h *Hub) BroadcastToAnalysis(analysisID string, message []byte) {
	select {
	case h.broadcast <- &BroadcastMessage{AnalysisID: analysisID, Message: message}:
	case <-h.done:
	}
}

// Watchers is the number of local connections watching an analysis.
func (h *Hub) Watchers(analysisID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.analyses[analysisID])
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				wsLogger.Warn().Err(err).Str("analysis", c.analysisID).Msg("websocket error")
			}
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type WebSocketHandler struct {
	hub      *Hub
	svc      Analyzer
	upgrader websocket.Upgrader
}

// NewWebSocketHandler accepts upgrades from allowedOrigin only; an empty
// origin allows any.
func NewWebSocketHandler(hub *Hub, svc Analyzer, allowedOrigin string) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

// HandleWebSocket streams the events of one analysis.
// GET /ws/analyses/{id}
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	client, _ := middleware.GetClientFromContext(r.Context())
	analysisID := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	doc, err := h.svc.Get(ctx, analysisID)
	cancel()
	if err == nil && doc.ClientID != client.ClientID {
		err = analysis.ErrNotFound
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsLogger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &Client{
		hub:        h.hub,
		conn:       conn,
		analysisID: analysisID,
		clientID:   client.ClientID,
		send:       make(chan []byte, sendBuffer),
	}

	// the current state goes first so late watchers know where things stand
	first := analysis.Event{
		Type:            analysis.EventStatus,
		AnalysisID:      doc.AnalysisID,
		Status:          doc.Status,
		PercentDone:     doc.PercentDone,
		MovesConsidered: doc.MovesConsidered,
		Analysis:        &doc,
	}
	if doc.Status.Finished() {
		first.Type = analysis.EventResult
	}
	if data, err := json.Marshal(first); err == nil {
		c.send <- data
	}

	h.hub.register <- c

	go c.writePump()
	go c.readPump()
}

// EventRelay forwards analysis events to the local hub and, except for
// the high-volume tree events, to the other instances.
type EventRelay struct {
	hub     *Hub
	publish func(analysisID string, message []byte)
	queue   chan BroadcastMessage
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

// NewEventRelay starts the publishing goroutine. publish may be nil for a
// single-instance deployment.
func NewEventRelay(hub *Hub, publish func(analysisID string, message []byte)) *EventRelay {
	er := &EventRelay{
		hub:     hub,
		publish: publish,
		queue:   make(chan BroadcastMessage, sendBuffer),
		logger:  wsLogger,
	}
	er.wg.Add(1)
	go er.run()
	return er
}

func (er *EventRelay) run() {
	defer er.wg.Done()
	for msg := range er.queue {
		if er.publish != nil {
			er.publish(msg.AnalysisID, msg.Message)
		}
	}
}

// OnEvent is an analysis.Listener.
func (er *EventRelay) OnEvent(ev analysis.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		er.logger.Error().Err(err).Str("analysis", ev.AnalysisID).Msg("failed to marshal event")
		return
	}
	er.hub.BroadcastToAnalysis(ev.AnalysisID, data)
	if er.publish == nil || ev.Type == analysis.EventTree {
		return
	}
	select {
	case er.queue <- BroadcastMessage{AnalysisID: ev.AnalysisID, Message: data}:
	default:
		er.logger.Warn().Str("analysis", ev.AnalysisID).Str("type", string(ev.Type)).Msg("relay queue full, event not published")
	}
}

// Close flushes queued events. No events may follow.
func (er *EventRelay) Close() {
	close(er.queue)
	er.wg.Wait()
}
