package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/superplace/rosterd/internal/domain"
	"github.com/superplace/rosterd/internal/events"
	"github.com/superplace/rosterd/internal/security"
	"github.com/superplace/rosterd/internal/security/auth"
)

// RosterStreamHandler pushes account-created events for one academy over a
// WebSocket. Directors keep enrollment dashboards open; polling the roster
// endpoint for new signups does not scale.
type RosterStreamHandler struct {
	broker         *events.Broker
	scoper         *security.Scoper
	tokenManager   *auth.TokenManager
	allowedOrigins []string
	logger         *slog.Logger
}

// NewRosterStreamHandler creates a new roster stream handler
func NewRosterStreamHandler(broker *events.Broker, scoper *security.Scoper, tm *auth.TokenManager, allowedOrigins []string, logger *slog.Logger) *RosterStreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RosterStreamHandler{
		broker:         broker,
		scoper:         scoper,
		tokenManager:   tm,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *RosterStreamHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// non-browser clients send no origin
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

// ServeHTTP handles GET /ws/roster/{academyId}. Browsers cannot set an
// Authorization header on a WebSocket handshake, so the token may arrive as
// a query parameter instead.
func (h *RosterStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	academyID := r.PathValue("academyId")
	if academyID == "" {
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) >= 4 {
			academyID = parts[3]
		}
	}
	if academyID == "" {
		writeMessage(w, http.StatusBadRequest, "missing academy id")
		return
	}

	caller, err := h.callerFromRequest(r)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid or missing token")
		return
	}
	if err := h.scoper.ValidateTenantAccess(caller, academyID); err != nil {
		writeMessage(w, http.StatusForbidden, "Access denied")
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	subID, ch := h.broker.Subscribe(academyID)
	defer h.broker.Unsubscribe(subID)

	h.logger.Info("roster stream opened",
		slog.String("academy_id", academyID),
		slog.String("caller_id", caller.AccountID),
	)

	// reader goroutine notices the peer going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
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
		case e, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Debug("roster stream closed", slog.String("academy_id", academyID))
				}
				return
			}
		case <-ticker.C:
			_ = ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *RosterStreamHandler) callerFromRequest(r *http.Request) (domain.Caller, error) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		extracted, err := auth.ExtractToken(r.Header.Get("Authorization"))
		if err != nil {
			return domain.Caller{}, err
		}
		raw = extracted
	}

	claims, err := h.tokenManager.ParseAnyToken(raw)
	if err != nil {
		return domain.Caller{}, err
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Caller{}, err
	}
	return domain.Caller{
		AccountID: claims.UserID,
		Email:     claims.Email,
		Role:      role,
		TenantID:  claims.TenantID,
	}, nil
}
