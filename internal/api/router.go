package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// NewRouter - все маршруты HTTP API
func NewRouter(h *Handler, corsOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(RequestID, AccessLog)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/api/metrics/custom", h.CustomMetricsHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/login", h.LoginHandler).Methods(http.MethodPost)

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(h.AuthMiddleware, AdminOnly)
	admin.HandleFunc("/items/{id}/pricing", h.GetPricingHandler).Methods(http.MethodGet)
	admin.HandleFunc("/items/{id}/pricing", h.UpdatePricingHandler).Methods(http.MethodPut)
	admin.HandleFunc("/items/{id}/pricing", h.DeletePricingHandler).Methods(http.MethodDelete)
	admin.HandleFunc("/maintenance", h.GetMaintenanceHandler).Methods(http.MethodGet)
	admin.HandleFunc("/maintenance", h.SetMaintenanceHandler).Methods(http.MethodPut)

	public := r.PathPrefix("/api").Subrouter()
	public.Use(h.MaintenanceGate)
	public.Handle("/items", h.Instrument("/api/items", h.ListItemsHandler)).Methods(http.MethodGet)
	public.Handle("/items/{id}", h.Instrument("/api/items/{id}", h.GetItemHandler)).Methods(http.MethodGet)
	public.Handle("/items/{id}/price", h.Instrument("/api/items/{id}/price", h.PriceHandler)).Methods(http.MethodGet)
	public.Handle("/items/{id}/options", h.Instrument("/api/items/{id}/options", h.OptionsHandler)).Methods(http.MethodGet)
	public.Handle("/calculate", h.Instrument("/api/calculate", h.CalculateHandler)).Methods(http.MethodPost)

	if len(corsOrigins) == 0 {
		return cors.Default().Handler(r)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", headerRequestID},
		AllowCredentials: true,
	}).Handler(r)
}
