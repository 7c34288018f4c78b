package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariefcatur/widget-store/internal/auth"
	"github.com/ariefcatur/widget-store/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validatorv10 "github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// OrderService is the order use-case surface the handlers need.
type OrderService interface {
	PlaceOrder(ctx context.Context, c orders.Checkout) (*orders.Order, error)
	GetOrder(ctx context.Context, id string) (*orders.Order, error)
	ListOrders(ctx context.Context) ([]orders.OrderSummary, error)
	UpdateOrderStatus(ctx context.Context, id string, to orders.Status, traceID string) (*orders.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	ListProducts(ctx context.Context) ([]orders.Product, error)
	GetProduct(ctx context.Context, id int64) (orders.Product, error)
}

// OrderCache caches rendered orders by id.
type OrderCache interface {
	Get(ctx context.Context, orderID string) ([]byte, bool)
	Set(ctx context.Context, orderID string, body []byte)
	Invalidate(ctx context.Context, orderID string)
}

type OrdersHandler struct {
	Service  OrderService
	Validate *validatorv10.Validate
	Cache    OrderCache // may be nil
	Limiter  Limiter    // may be nil
	// PlaceTimeout bounds a whole placement, payment included.
	PlaceTimeout time.Duration
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		var limit []func(http.Handler) http.Handler
		if h.Limiter != nil {
			limit = append(limit, RateLimit(h.Limiter))
		}
		r.With(limit...).Post("/", h.createOrder)

		r.With(RequireAdmin).Get("/", h.listOrders)
		r.With(RequireAuth).Get("/{id}", h.getOrder)
		r.With(RequireAdmin).Patch("/{id}", h.updateOrder)
		r.With(RequireAdmin).Delete("/{id}", h.deleteOrder)
	})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.PlaceOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json")
		return
	}
	c, err := req.Checkout(h.Validate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if id, ok := auth.FromContext(r.Context()); ok {
		uid := id.UserID
		c.Customer = &uid
	}
	c.TraceID = middleware.GetReqID(r.Context())

	ctx := r.Context()
	if h.PlaceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.PlaceTimeout)
		defer cancel()
	}

	o, err := h.Service.PlaceOrder(ctx, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"order": o})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list})
}

// getOrder serves the owner of an order or an admin. Guest orders are
// visible to admins only.
func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller, _ := auth.FromContext(r.Context())

	body, cached := h.cacheGet(r.Context(), id)
	if !cached {
		o, err := h.Service.GetOrder(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		b, err := json.Marshal(o)
		if err != nil {
			writeError(w, r, err)
			return
		}
		body = b
		if h.Cache != nil {
			h.Cache.Set(r.Context(), id, body)
		}
	}

	var owner struct {
		Customer *int64 `json:"customer"`
	}
	if err := json.Unmarshal(body, &owner); err != nil {
		writeError(w, r, err)
		return
	}
	if !caller.IsAdmin && (owner.Customer == nil || *owner.Customer != caller.UserID) {
		writeError(w, r, orders.UnauthorizedError("You are not authorized to view this order."))
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"order": body})
}

func (h *OrdersHandler) cacheGet(ctx context.Context, id string) ([]byte, bool) {
	if h.Cache == nil {
		return nil, false
	}
	return h.Cache.Get(ctx, id)
}

type updateOrderReq struct {
	Status orders.Status `json:"status" validate:"required"`
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateOrderReq
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "status: required")
		return
	}

	o, err := h.Service.UpdateOrderStatus(r.Context(), id, req.Status, middleware.GetReqID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Cache != nil {
		h.Cache.Invalidate(r.Context(), id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Service.DeleteOrder(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	if h.Cache != nil {
		h.Cache.Invalidate(r.Context(), id)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Order deleted"})
}
