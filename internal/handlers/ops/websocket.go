package ops

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The listener is internal only, so any origin behind the proxy is fine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// handleNotificationFeed upgrades the connection and streams the user's new
// notifications as JSON frames until the client disconnects.
func (h *Handler) handleNotificationFeed(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "user_id query parameter required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}

	feed, cancel := h.services.Notification.Subscribe(userID)
	defer cancel()
	defer conn.Close()

	h.logger.Debug("notification feed opened", zap.Int64("user_id", userID))

	// Reader goroutine: we never expect client frames, but reading is what
	// surfaces close frames and connection drops.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case notification, ok := <-feed:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(notification); err != nil {
				h.logger.Debug("notification feed write failed",
					zap.Int64("user_id", userID),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-disconnected:
			h.logger.Debug("notification feed closed", zap.Int64("user_id", userID))
			return
		}
	}
}
