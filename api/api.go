package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"teleshop/models"
	"teleshop/services"
)

// Store is the order store used by the handlers.
type Store interface {
	CreateOrder(ctx context.Context, input models.CreateOrderInput) (models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) (models.Order, models.OrderStatus, bool, error)
	IssueLinkCode(ctx context.Context, userID int64) (string, bool, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// OrderObserver is told about every durable order write.
type OrderObserver interface {
	OrderSaved(order models.Order, previous models.OrderStatus, created bool)
}

// DBStore is the Store backed by the services package.
type DBStore struct{}

func (DBStore) CreateOrder(ctx context.Context, input models.CreateOrderInput) (models.Order, error) {
	return services.CreateOrder(ctx, input)
}

func (DBStore) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) (models.Order, models.OrderStatus, bool, error) {
	return services.UpdateOrderStatus(ctx, orderID, status)
}

func (DBStore) IssueLinkCode(ctx context.Context, userID int64) (string, bool, error) {
	return services.IssueLinkCode(ctx, userID)
}

func (DBStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	return services.ListProducts(ctx)
}

type Handler struct {
	store    Store
	observer OrderObserver
	gatherer prometheus.Gatherer
	location *time.Location
	logger   *zap.Logger
}

func NewHandler(store Store, observer OrderObserver, gatherer prometheus.Gatherer, loc *time.Location, logger *zap.Logger) *Handler {
	return &Handler{store: store, observer: observer, gatherer: gatherer, location: loc, logger: logger}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/products", h.ListProducts)
	r.Post("/orders", h.CreateOrder)
	r.Patch("/orders/{id}/status", h.UpdateOrderStatus)
	r.Post("/users/{id}/link-code", h.IssueLinkCode)
	if h.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

type createOrderItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type createOrderRequest struct {
	UserID       int64             `json:"userId"`
	Address      string            `json:"address"`
	DeliveryTime string            `json:"deliveryTime"`
	Comment      string            `json:"comment"`
	Items        []createOrderItem `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
}

type orderResponse struct {
	ID           int64               `json:"id"`
	UserID       int64               `json:"userId"`
	Status       string              `json:"status"`
	CreatedAt    time.Time           `json:"createdAt"`
	Address      string              `json:"address"`
	DeliveryTime *time.Time          `json:"deliveryTime,omitempty"`
	Comment      string              `json:"comment,omitempty"`
	Total        string              `json:"total"`
	Items        []orderItemResponse `json:"items"`
}

type productResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Image string `json:"image,omitempty"`
}

type errorResponse struct {
	TraceID string `json:"traceId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toOrderResponse(o models.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Price:     it.Product.Price.StringFixed(2),
			Quantity:  it.Quantity,
		}
	}
	return orderResponse{
		ID:           o.ID,
		UserID:       o.Owner.ID,
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
		Address:      o.Address,
		DeliveryTime: o.DeliveryTime,
		Comment:      o.Comment,
		Total:        o.Total().StringFixed(2),
		Items:        items,
	}
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		h.internalError(w, traceID, err)
		return
	}
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = productResponse{ID: p.ID, Name: p.Name, Price: p.Price.StringFixed(2), Image: p.ImagePath}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := h.logger.With(zap.String("traceId", traceID))

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		writeError(w, http.StatusBadRequest, traceID, "VALIDATION_ERROR", "request body must be valid JSON")
		return
	}
	deliveryTime, err := services.ParseDeliveryTime(req.DeliveryTime, h.location)
	if err != nil {
		writeError(w, http.StatusBadRequest, traceID, "VALIDATION_ERROR", err.Error())
		return
	}
	input := models.CreateOrderInput{
		UserID:       req.UserID,
		Address:      req.Address,
		DeliveryTime: deliveryTime,
		Comment:      req.Comment,
		Items:        make([]models.CreateOrderItem, len(req.Items)),
	}
	for i, it := range req.Items {
		input.Items[i] = models.CreateOrderItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	order, err := h.store.CreateOrder(r.Context(), input)
	switch {
	case errors.Is(err, services.ErrInvalidOrder):
		writeError(w, http.StatusBadRequest, traceID, "VALIDATION_ERROR", err.Error())
		return
	case errors.Is(err, services.ErrUnknownUser):
		writeError(w, http.StatusNotFound, traceID, "NOT_FOUND", err.Error())
		return
	case err != nil:
		h.internalError(w, traceID, err)
		return
	}

	h.observer.OrderSaved(order, "", true)
	logger.Info("order created", zap.Int64("order_id", order.ID), zap.Int64("user_id", order.Owner.ID))
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := h.logger.With(zap.String("traceId", traceID))

	orderID, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, traceID, "VALIDATION_ERROR", "id must be a positive integer")
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, traceID, "VALIDATION_ERROR", "request body must be valid JSON")
		return
	}

	after, before, found, err := h.store.UpdateOrderStatus(r.Context(), orderID, models.OrderStatus(req.Status))
	switch {
	case errors.Is(err, services.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, traceID, "VALIDATION_ERROR", err.Error())
		return
	case err != nil:
		h.internalError(w, traceID, err)
		return
	case !found:
		writeError(w, http.StatusNotFound, traceID, "NOT_FOUND", "order not found")
		return
	}

	h.observer.OrderSaved(after, before, false)
	logger.Info("order status updated",
		zap.Int64("order_id", orderID),
		zap.String("from", string(before)),
		zap.String("to", string(after.Status)),
	)
	writeJSON(w, http.StatusOK, toOrderResponse(after))
}

func (h *Handler) IssueLinkCode(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	userID, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, traceID, "VALIDATION_ERROR", "id must be a positive integer")
		return
	}
	code, found, err := h.store.IssueLinkCode(r.Context(), userID)
	if err != nil {
		h.internalError(w, traceID, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, traceID, "NOT_FOUND", "user not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"code": code})
}

func (h *Handler) internalError(w http.ResponseWriter, traceID string, err error) {
	h.logger.Error("unexpected error", zap.String("traceId", traceID), zap.Error(err))
	writeError(w, http.StatusInternalServerError, traceID, "INTERNAL_ERROR", "an unexpected error occurred")
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func writeError(w http.ResponseWriter, status int, traceID, code, message string) {
	writeJSON(w, status, errorResponse{TraceID: traceID, Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
