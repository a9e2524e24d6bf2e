// Package ops exposes the internal operational listener: health, runtime
// stats, the notification read API and the live notification feed. The
// listener is meant to sit on an internal port behind the reverse proxy,
// never on the public edge.
package ops

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"economix/internal/cache"
	"economix/internal/config"
	"economix/internal/database"
	"economix/internal/events"
	"economix/internal/services"
)

// Handler serves the ops endpoints.
type Handler struct {
	db       *database.Manager
	cache    cache.Cache
	eventBus events.EventBus
	services *services.Collection
	cfg      *config.OpsConfig
	logger   *zap.Logger
	started  time.Time
}

// NewHandler creates the ops handler.
func NewHandler(
	db *database.Manager,
	cacheStore cache.Cache,
	eventBus events.EventBus,
	serviceCollection *services.Collection,
	cfg *config.OpsConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		db:       db,
		cache:    cacheStore,
		eventBus: eventBus,
		services: serviceCollection,
		cfg:      cfg,
		logger:   logger,
		started:  time.Now(),
	}
}

// Router builds the chi router for the ops listener.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/healthz", h.handleHealth)
	r.Get("/stats", h.handleStats)
	r.Get("/ws/notifications", h.handleNotificationFeed)

	r.Route("/api/v1/users/{userID}/notifications", func(r chi.Router) {
		r.Get("/", h.handleListNotifications)
		r.Get("/unread-count", h.handleUnreadCount)
		r.Post("/{notificationID}/read", h.handleMarkAsRead)
		r.Post("/read-all", h.handleMarkAllAsRead)
	})

	return r
}

// requestLogger logs each ops request with the structured logger.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("ops request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// ===============================
// HEALTH
// ===============================

// handleHealth aggregates component health into one status. Any unhealthy
// component flips the response to 503.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbHealth := h.db.Health(ctx)
	components := map[string]interface{}{
		"database": dbHealth,
	}
	status := dbHealth.Status

	if err := h.cache.Health(ctx); err != nil {
		components["cache"] = map[string]string{"status": "unhealthy", "error": err.Error()}
		status = database.StatusUnhealthy
	} else {
		components["cache"] = map[string]string{"status": "healthy"}
	}

	if err := h.eventBus.Health(); err != nil {
		components["events"] = map[string]string{"status": "unhealthy", "error": err.Error()}
		status = database.StatusUnhealthy
	} else {
		components["events"] = map[string]string{"status": "healthy"}
	}

	code := http.StatusOK
	if status == database.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, map[string]interface{}{
		"status":      status,
		"environment": h.cfg.Environment,
		"uptime":      time.Since(h.started).String(),
		"timestamp":   time.Now(),
		"components":  components,
	})
}

// handleStats reports runtime counters from every moving part.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	cacheStats, err := h.cache.Stats(r.Context())
	if err != nil {
		h.logger.Warn("failed to collect cache stats", zap.Error(err))
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp": time.Now(),
		"uptime":    time.Since(h.started).String(),
		"database":  h.db.Metrics(),
		"pool":      h.db.Stats(),
		"cache":     cacheStats,
		"events":    h.eventBus.Stats(),
		"trigger":   h.services.Trigger.Stats(),
	})
}

// ===============================
// NOTIFICATION READ API
// ===============================

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, services.InvalidInputError("limit", "must be an integer"))
			return
		}
		limit = parsed
	}

	notifications, err := h.services.Notification.GetNotifications(r.Context(), userID, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	count, err := h.services.Notification.CountUnread(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"unread": count})
}

func (h *Handler) handleMarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	notificationID, err := strconv.ParseInt(chi.URLParam(r, "notificationID"), 10, 64)
	if err != nil {
		h.writeError(w, services.InvalidInputError("notificationID", "must be an integer"))
		return
	}
	if err := h.services.Notification.MarkAsRead(r.Context(), userID, notificationID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"read": true})
}

func (h *Handler) handleMarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	if err := h.services.Notification.MarkAllAsRead(r.Context(), userID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"read": true})
}

// ===============================
// HELPERS
// ===============================

func (h *Handler) userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		h.writeError(w, services.InvalidInputError("userID", "must be a positive integer"))
		return 0, false
	}
	return userID, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("failed to encode ops response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if serviceErr := services.GetServiceError(err); serviceErr != nil {
		h.writeJSON(w, serviceErr.StatusCode, map[string]interface{}{
			"error":   serviceErr.Message,
			"code":    serviceErr.Code,
			"details": serviceErr.Details,
		})
		return
	}
	h.logger.Error("unhandled ops error", zap.Error(err))
	h.writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal error",
	})
}
