package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"toy-rental-pricing/internal/logger"
	"toy-rental-pricing/internal/metrics"
	"toy-rental-pricing/internal/model"
	"toy-rental-pricing/internal/service"
)

// Handler - HTTP-обработчики сервиса цен
type Handler struct {
	quoter *service.Quoter
	admin  *service.PricingAdmin
	auth   *service.AuthService
	window *metrics.Window
}

func NewHandler(quoter *service.Quoter, admin *service.PricingAdmin, auth *service.AuthService, window *metrics.Window) *Handler {
	return &Handler{quoter: quoter, admin: admin, auth: auth, window: window}
}

// Каталог и расчеты

// ListItemsHandler - список товаров с актуальными ценами
func (h *Handler) ListItemsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.admin.ListItems(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetItemHandler - один товар по ID или slug
func (h *Handler) GetItemHandler(w http.ResponseWriter, r *http.Request) {
	item, err := h.admin.ResolveItem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// PriceHandler - расчет цены по параметрам строки запроса
func (h *Handler) PriceHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	quantity := 0
	if raw := q.Get("quantity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "quantity must be an integer")
			return
		}
		quantity = n
	}

	h.quote(w, r, model.CalcRequest{
		RequestID:    requestIDFrom(r.Context()),
		ItemID:       mux.Vars(r)["id"],
		Tier:         model.Tier(q.Get("tier")),
		Quantity:     quantity,
		CustomerType: model.CustomerType(q.Get("customerType")),
	})
}

// CalculateHandler - расчет цены по телу запроса
func (h *Handler) CalculateHandler(w http.ResponseWriter, r *http.Request) {
	var req model.CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}
	if req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "itemId is required")
		return
	}
	if req.RequestID == "" {
		req.RequestID = requestIDFrom(r.Context())
	}
	h.quote(w, r, req)
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request, req model.CalcRequest) {
	resp, err := h.quoter.Quote(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !service.IsFinite(resp.Result) {
		logger.Warn("Расчет дал нечисловой результат", "item", resp.ItemID, "request_id", req.RequestID)
		writeError(w, http.StatusUnprocessableEntity, "pricing result is not a finite number")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// OptionsHandler - три тарифа товара и рекомендуемый
func (h *Handler) OptionsHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := h.quoter.Options(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Администрирование

// LoginHandler - проверка логина и пароля, выдача токена
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Bad request")
		return
	}

	token, err := h.auth.Login(creds.Username, creds.Password)
	if err != nil {
		logger.Warn("Неудачная попытка входа", "username", creds.Username)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// GetPricingHandler - цены товара, сохраненные администратором
func (h *Handler) GetPricingHandler(w http.ResponseWriter, r *http.Request) {
	record, found, err := h.admin.GetPricing(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no pricing override for this item")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// UpdatePricingHandler - изменение цен товара
func (h *Handler) UpdatePricingHandler(w http.ResponseWriter, r *http.Request) {
	var input service.PricingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Неверный формат данных")
		return
	}

	record, warnings, err := h.admin.SavePricing(r.Context(), mux.Vars(r)["id"], input, usernameFrom(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"record":   record,
		"warnings": warnings,
	})
}

// DeletePricingHandler - сброс цен товара к каталогу
func (h *Handler) DeletePricingHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeletePricing(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "pricing reset to catalog"})
}

// GetMaintenanceHandler - текущий режим обслуживания
func (h *Handler) GetMaintenanceHandler(w http.ResponseWriter, r *http.Request) {
	on, err := h.admin.Maintenance(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": on})
}

// SetMaintenanceHandler - включение/выключение режима обслуживания
func (h *Handler) SetMaintenanceHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Неверный формат данных")
		return
	}
	if err := h.admin.SetMaintenance(r.Context(), body.Enabled); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": body.Enabled})
}

// Метрики

// CustomMetricsHandler - запросы за минуту, час, день
func (h *Handler) CustomMetricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.window.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Ошибка сериализации ответа", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidPromotionValue),
		errors.Is(err, service.ErrUnknownCustomerType),
		errors.Is(err, service.ErrUnknownTier),
		errors.Is(err, service.ErrInvalidPricing):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("Внутренняя ошибка", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
