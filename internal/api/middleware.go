package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"toy-rental-pricing/internal/logger"
	"toy-rental-pricing/internal/metrics"
	"toy-rental-pricing/internal/service"
)

type contextKey string

const (
	claimsKey    contextKey = "claims"
	requestIDKey contextKey = "request_id"

	headerRequestID = "X-Request-ID"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestID - идентификатор запроса в заголовке и контексте
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// AccessLog - журнал запросов
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", requestIDFrom(r.Context()),
		)
	})
}

// Instrument - метрики Prometheus и счетчик за сутки для эндпоинта
func (h *Handler) Instrument(endpoint string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		metrics.RequestCounter.WithLabelValues(endpoint, strconv.Itoa(rec.status)).Inc()
		metrics.RequestHistogram.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		h.window.Record()
	})
}

// MaintenanceGate - 503 для публичных расчетов, пока включен режим обслуживания
func (h *Handler) MaintenanceGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		on, err := h.admin.Maintenance(r.Context())
		if err != nil {
			logger.Error("Ошибка проверки режима обслуживания", "error", err)
		}
		if on {
			w.Header().Set("Retry-After", "300")
			writeError(w, http.StatusServiceUnavailable, "site under maintenance")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthMiddleware - проверка Bearer-токена
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := h.auth.ValidateJWT(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly - доступ только для роли admin
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(claimsKey).(*service.Claims)
		if !ok || claims == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if claims.Role != service.RoleAdmin {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func usernameFrom(ctx context.Context) string {
	if claims, ok := ctx.Value(claimsKey).(*service.Claims); ok && claims != nil {
		return claims.Username
	}
	return ""
}
