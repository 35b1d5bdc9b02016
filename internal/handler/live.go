package handler

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/observability/metrics"
	"github.com/yourorg/centerattend/internal/security"
	"github.com/yourorg/centerattend/internal/security/middleware"
)

// feedSubscriber pairs a delivery channel with the visibility the subscriber
// authenticated under. Records outside the scope are never written to the
// channel.
type feedSubscriber struct {
	ch    chan RecordResponse
	scope security.Scope
}

// LiveFeedHandler pushes attendance records to websocket subscribers as they
// are marked. It implements the attendance service's Broadcaster interface.
// Subscribers authenticate with a token query parameter, since browsers
// cannot attach Authorization headers on websocket upgrades, and each one
// only sees the records its scope covers.
type LiveFeedHandler struct {
	verifier       middleware.Verifier
	policy         *security.PolicyEngine
	logger         *slog.Logger
	allowedOrigins []string

	mu          sync.RWMutex
	subscribers map[*websocket.Conn]*feedSubscriber
}

// NewLiveFeedHandler creates a new live feed handler
func NewLiveFeedHandler(verifier middleware.Verifier, policy *security.PolicyEngine, allowedOrigins []string, logger *slog.Logger) *LiveFeedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &LiveFeedHandler{
		verifier:       verifier,
		policy:         policy,
		logger:         logger,
		allowedOrigins: allowedOrigins,
		subscribers:    make(map[*websocket.Conn]*feedSubscriber),
	}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *LiveFeedHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// Broadcast fans a record out to every subscriber whose scope covers it.
// Slow subscribers drop messages instead of blocking the marking path.
func (h *LiveFeedHandler) Broadcast(record *domain.AttendanceRecord) {
	resp := toRecordResponse(record)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers {
		if !feedVisible(sub.scope, resp) {
			continue
		}
		select {
		case sub.ch <- resp:
		default:
		}
	}
}

// feedVisible applies the subscriber's scope to a record the same way list
// queries are narrowed.
func feedVisible(scope security.Scope, rec RecordResponse) bool {
	switch scope.Kind {
	case security.ScopeAll:
		return true
	case security.ScopeCenter:
		return rec.CenterID == scope.CenterID
	case security.ScopeSelf:
		return scope.Subject != nil &&
			rec.Kind == string(scope.Subject.Kind) &&
			rec.SubjectID == scope.Subject.ID
	default:
		return false
	}
}

// ServeHTTP handles GET /ws/attendance?token=... websocket upgrades
func (h *LiveFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}
	account, err := h.verifier.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	scope, err := h.policy.ComputeScope(account, security.OpReadAttendance)
	if err != nil {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	ch := h.subscribe(ws, scope)
	defer h.unsubscribe(ws)

	h.logger.Info("live feed subscriber connected",
		slog.String("account_id", account.ID),
		slog.String("remote", r.RemoteAddr),
	)

	// Drain the read side so close frames and pongs are processed.
	readClosed := make(chan struct{})
	go func() {
		defer close(readClosed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case record := <-ch:
			if err := ws.WriteJSON(record); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Debug("websocket closed", slog.String("remote", r.RemoteAddr))
				}
				return
			}
		case <-ticker.C:
			_ = ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		case <-readClosed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *LiveFeedHandler) subscribe(ws *websocket.Conn, scope security.Scope) chan RecordResponse {
	sub := &feedSubscriber{ch: make(chan RecordResponse, 16), scope: scope}
	h.mu.Lock()
	h.subscribers[ws] = sub
	h.mu.Unlock()
	metrics.IncrementFeedClients()
	return sub.ch
}

func (h *LiveFeedHandler) unsubscribe(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.subscribers, ws)
	h.mu.Unlock()
	metrics.DecrementFeedClients()
}
