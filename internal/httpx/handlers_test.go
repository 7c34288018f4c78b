package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ariefcatur/widget-store/internal/auth"
	"github.com/ariefcatur/widget-store/internal/money"
	"github.com/ariefcatur/widget-store/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu       sync.Mutex
	placed   []orders.Checkout
	placeErr error
	orders   map[string]*orders.Order
	gets     int
	products []orders.Product
}

func (f *fakeService) PlaceOrder(_ context.Context, c orders.Checkout) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, c)
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	return &orders.Order{ID: "o-new", Customer: c.Customer, Total: money.NewAmount(c.Total), Status: orders.StatusPlaced}, nil
}

func (f *fakeService) GetOrder(_ context.Context, id string) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	o, ok := f.orders[id]
	if !ok {
		return nil, orders.NotFoundError("order %s not found", id)
	}
	return o, nil
}

func (f *fakeService) ListOrders(context.Context) ([]orders.OrderSummary, error) {
	out := []orders.OrderSummary{}
	for _, o := range f.orders {
		out = append(out, orders.OrderSummary{ID: o.ID, Status: o.Status, Total: o.Total})
	}
	return out, nil
}

func (f *fakeService) UpdateOrderStatus(_ context.Context, id string, to orders.Status, _ string) (*orders.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, orders.NotFoundError("order %s not found", id)
	}
	if !to.Valid() {
		return nil, orders.ValidationError("unknown status %q", to)
	}
	if !orders.CanTransition(o.Status, to) {
		return nil, orders.ConflictError("order cannot move to status %q", to)
	}
	o.Status = to
	return o, nil
}

func (f *fakeService) DeleteOrder(_ context.Context, id string) error {
	if _, ok := f.orders[id]; !ok {
		return orders.NotFoundError("order %s not found", id)
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeService) ListProducts(context.Context) ([]orders.Product, error) {
	return f.products, nil
}

func (f *fakeService) GetProduct(_ context.Context, id int64) (orders.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return orders.Product{}, orders.NotFoundError("product %d not found", id)
}

type mapCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (c *mapCache) Get(_ context.Context, id string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[id]
	return b, ok
}

func (c *mapCache) Set(_ context.Context, id string, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[id] = b
}

func (c *mapCache) Invalidate(_ context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, id)
}

type countingLimiter struct {
	limit int
	seen  map[string]int
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, caller string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.seen[caller]++
	return l.seen[caller] <= l.limit, nil
}

const secret = "test-secret"

var (
	owner    = int64(7)
	stranger = int64(8)
)

type harness struct {
	router *chi.Mux
	svc    *fakeService
	cache  *mapCache
	tokens *auth.Tokens
}

func newHarness(t *testing.T, limiter Limiter) *harness {
	t.Helper()
	svc := &fakeService{
		orders: map[string]*orders.Order{
			"o-1":     {ID: "o-1", Customer: &owner, Status: orders.StatusPlaced, Total: money.RequireAmount("23.70")},
			"o-guest": {ID: "o-guest", Status: orders.StatusPlaced, Total: money.RequireAmount("5.00")},
		},
		products: []orders.Product{{ID: 1, Name: "TV", IsActive: true}},
	}
	cache := &mapCache{m: map[string][]byte{}}
	tokens := auth.NewTokens(secret)
	r := NewRouter(tokens, 0)
	(&OrdersHandler{Service: svc, Validate: orders.NewValidator(), Cache: cache, Limiter: limiter}).Register(r)
	(&ProductsHandler{Service: svc}).Register(r)
	return &harness{router: r, svc: svc, cache: cache, tokens: tokens}
}

func (h *harness) token(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, err := h.tokens.Issue(id, 0)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(method, path, body, token string) *httptest.ResponseRecorder {
	return h.doFrom("", method, path, body, token)
}

// doFrom sends the request as if it arrived from remoteAddr.
func (h *harness) doFrom(remoteAddr, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, rec.Code, body.Error.Status)
	return body.Error.Message
}

const orderBody = `{
  "cart": {"items": {"3": {"product_id": 3, "quantity": 2, "price": "10.00", "discount": "0.00", "name": "Widget"}}, "subtotal": "20.00", "numCartItems": 2},
  "orderData": {"customer": {"state": "CA", "user_id": 999}, "shipping": {"details": {"cost": "2.00"}}, "tax": "1.70", "total": "23.70"},
  "nonce": "fake-valid-nonce"
}`

func TestCreateOrder_Created(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodPost, "/orders", orderBody, h.token(t, auth.Identity{UserID: owner}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Order struct {
			ID       string `json:"order_id"`
			Customer *int64 `json:"customer"`
			Total    string `json:"total"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "23.70", resp.Order.Total)
	require.NotNil(t, resp.Order.Customer)
	assert.Equal(t, owner, *resp.Order.Customer, "customer is the caller, not the body's user_id")
	require.Len(t, h.svc.placed, 1)
	assert.Equal(t, "CA", h.svc.placed[0].Region)
}

func TestCreateOrder_Guest(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodPost, "/orders", orderBody, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, h.svc.placed[0].Customer)
}

func TestCreateOrder_BadRequestsNeverReachService(t *testing.T) {
	h := newHarness(t, nil)
	for name, body := range map[string]string{
		"not json":     `{"cart":`,
		"missing nonce": strings.Replace(orderBody, `"nonce": "fake-valid-nonce"`, `"other": 1`, 1),
		"missing cart":  `{"orderData": {"shipping": {"details": {"cost": 0}}}, "nonce": "n"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := h.do(http.MethodPost, "/orders", body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			errorMessage(t, rec)
		})
	}
	assert.Empty(t, h.svc.placed)
}

func TestCreateOrder_ConflictKinds(t *testing.T) {
	cases := map[string]error{
		"integrity": orders.IntegrityError(errors.New("total")),
		"stock":     orders.InsufficientQuantityError("Widget"),
		"payment":   orders.PaymentError(nil),
	}
	for name, err := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.svc.placeErr = err
			rec := h.do(http.MethodPost, "/orders", orderBody, "")
			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.Equal(t, orders.MessageOf(err), errorMessage(t, rec))
		})
	}
}

func TestCreateOrder_InternalErrorHidesDetail(t *testing.T) {
	h := newHarness(t, nil)
	h.svc.placeErr = errors.New("pq: password authentication failed")
	rec := h.do(http.MethodPost, "/orders", orderBody, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", errorMessage(t, rec))
}

func TestCreateOrder_RateLimited(t *testing.T) {
	h := newHarness(t, &countingLimiter{limit: 1, seen: map[string]int{}})
	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/orders", orderBody, "").Code)
	rec := h.do(http.MethodPost, "/orders", orderBody, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Len(t, h.svc.placed, 1)

	// a different caller has its own budget
	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/orders", orderBody, h.token(t, auth.Identity{UserID: owner})).Code)
}

func TestCreateOrder_RateLimitedPerIPAcrossConnections(t *testing.T) {
	limiter := &countingLimiter{limit: 1, seen: map[string]int{}}
	h := newHarness(t, limiter)

	assert.Equal(t, http.StatusCreated, h.doFrom("203.0.113.7:40001", http.MethodPost, "/orders", orderBody, "").Code)
	rec := h.doFrom("203.0.113.7:40002", http.MethodPost, "/orders", orderBody, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, map[string]int{"ip:203.0.113.7": 2}, limiter.seen)

	assert.Equal(t, http.StatusCreated, h.doFrom("[2001:db8::1]:5000", http.MethodPost, "/orders", orderBody, "").Code)
	assert.Equal(t, 1, limiter.seen["ip:2001:db8::1"])
}

func TestCreateOrder_LimiterFailureFailsOpen(t *testing.T) {
	h := newHarness(t, &countingLimiter{err: errors.New("redis down")})
	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/orders", orderBody, "").Code)
}

func TestGetOrder_Access(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/orders/o-1", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgAuthRequired, errorMessage(t, rec))

	rec = h.do(http.MethodGet, "/orders/o-1", "", h.token(t, auth.Identity{UserID: owner}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":"23.70"`)

	rec = h.do(http.MethodGet, "/orders/o-1", "", h.token(t, auth.Identity{UserID: stranger}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "You are not authorized to view this order.", errorMessage(t, rec))

	rec = h.do(http.MethodGet, "/orders/o-guest", "", h.token(t, auth.Identity{UserID: stranger}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "guest orders are admin-only")

	rec = h.do(http.MethodGet, "/orders/o-guest", "", h.token(t, auth.Identity{UserID: 1, IsAdmin: true}))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/orders/nope", "", h.token(t, auth.Identity{UserID: 1, IsAdmin: true}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder_InvalidTokenIsAnonymous(t *testing.T) {
	h := newHarness(t, nil)
	forged, err := auth.NewTokens("other").Issue(auth.Identity{UserID: owner, IsAdmin: true}, 0)
	require.NoError(t, err)
	rec := h.do(http.MethodGet, "/orders/o-1", "", forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetOrder_ServedFromCache(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.token(t, auth.Identity{UserID: owner})

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/orders/o-1", "", tok).Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/orders/o-1", "", tok).Code)
	assert.Equal(t, 1, h.svc.gets)

	// ownership is still enforced on a cache hit
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/orders/o-1", "", h.token(t, auth.Identity{UserID: stranger})).Code)
}

func TestListOrders_AdminOnly(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/orders", "", h.token(t, auth.Identity{UserID: owner}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgAdminRequired, errorMessage(t, rec))

	rec = h.do(http.MethodGet, "/orders", "", h.token(t, auth.Identity{UserID: 1, IsAdmin: true}))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Orders []orders.OrderSummary `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Orders, 2)
}

func TestUpdateOrder(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.token(t, auth.Identity{UserID: 1, IsAdmin: true})
	h.cache.Set(context.Background(), "o-1", []byte(`{"order_id":"o-1","customer":7}`))

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPatch, "/orders/o-1", `{"status":"shipped"}`, h.token(t, auth.Identity{UserID: owner})).Code)

	rec := h.do(http.MethodPatch, "/orders/o-1", `{"status":"shipped"}`, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"shipped"`)
	_, cached := h.cache.Get(context.Background(), "o-1")
	assert.False(t, cached, "cache invalidated")

	assert.Equal(t, http.StatusConflict, h.do(http.MethodPatch, "/orders/o-1", `{"status":"cancelled"}`, admin).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPatch, "/orders/o-1", `{"status":"lost"}`, admin).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPatch, "/orders/o-1", `{}`, admin).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPatch, "/orders/zzz", `{"status":"shipped"}`, admin).Code)
}

func TestDeleteOrder(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.token(t, auth.Identity{UserID: 1, IsAdmin: true})

	rec := h.do(http.MethodDelete, "/orders/o-1", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Order deleted"}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/orders/o-1", "", admin).Code)
}

func TestProducts(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"TV"`)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/products/1", "", "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/products/2", "", "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/products/abc", "", "").Code)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
