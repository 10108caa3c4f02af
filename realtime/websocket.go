package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// ConnHandler receives the admitted connection together with the user id
// from the verified identity claim.
type ConnHandler func(conn *websocket.Conn, userID string)

// AdmissionHandler is an http.Handler that gates a websocket upgrade behind
// [Gateway.Admit]. Rejections are answered with 401 before any upgrade
// bytes are exchanged, so an unauthenticated caller never reaches the
// websocket subsystem.
type AdmissionHandler struct {
	gateway  *Gateway
	upgrader websocket.Upgrader
	handler  ConnHandler
	logger   zerolog.Logger
}

// NewAdmissionHandler describes the newadmissionhandler operation and its
// observable behavior.
//
// checkOrigin may be nil, in which case the websocket default same-origin
// policy applies.
func NewAdmissionHandler(gateway *Gateway, handler ConnHandler, checkOrigin func(*http.Request) bool, logger zerolog.Logger) *AdmissionHandler {
	return &AdmissionHandler{
		gateway: gateway,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		handler: handler,
		logger:  logger,
	}
}

// ServeHTTP describes the servehttp operation and its observable behavior.
func (h *AdmissionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claim, err := h.gateway.Admit(r.Header, r.RemoteAddr)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote its own failure response.
		h.logger.Warn().Err(err).Str("user_id", claim.UserID).Msg("upgrade failed")
		return
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.keepAlive(conn)

	h.handler(conn, claim.UserID)
}

func (h *AdmissionHandler) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			return
		}
	}
}
