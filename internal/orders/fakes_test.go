package orders

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/ariefcatur/widget-store/internal/payment"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

var errTxClosed = errors.New("tx is closed")

// memStore is an in-memory Store. Stock moves apply immediately and are
// undone on rollback.
type memStore struct {
	mu       sync.Mutex
	products map[int64]*Product
	orders   map[string]*Order

	begins, commits, rollbacks int

	beginErr       error
	insertItemsErr error
	commitErr      error
}

func newMemStore(ps ...Product) *memStore {
	s := &memStore{products: map[int64]*Product{}, orders: map[string]*Order{}}
	for i := range ps {
		p := ps[i]
		s.products[p.ID] = &p
	}
	return s
}

func (s *memStore) quantity(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Quantity
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) GetProduct(_ context.Context, id int64) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, NotFoundError("product %d not found", id)
	}
	return *p, nil
}

func (s *memStore) ListProducts(context.Context) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Product{}
	for _, p := range s.products {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) Begin(context.Context) (Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.begins++
	return &memTx{s: s}, nil
}

func (s *memStore) GetOrder(_ context.Context, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, NotFoundError("order %s not found", id)
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) ListOrders(_ context.Context, limit int) ([]OrderSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []OrderSummary{}
	for _, o := range s.orders {
		out = append(out, OrderSummary{ID: o.ID, Status: o.Status, OrderDate: o.OrderDate, Total: o.Total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) UpdateOrderStatus(_ context.Context, id string, from []Status, to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return NotFoundError("order %s not found", id)
	}
	for _, f := range from {
		if o.Status == f {
			o.Status = to
			return nil
		}
	}
	return ErrStatusMismatch
}

func (s *memStore) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return NotFoundError("order %s not found", id)
	}
	delete(s.orders, id)
	return nil
}

type stockDelta struct {
	id  int64
	qty int
}

type memTx struct {
	s      *memStore
	deltas []stockDelta
	order  *Order
	items  []Reservation
	closed bool
}

func (t *memTx) DecrementQuantity(_ context.Context, id int64, qty int) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	p, ok := t.s.products[id]
	if !ok || !p.IsActive || p.Quantity < qty {
		return false, nil
	}
	p.Quantity -= qty
	t.deltas = append(t.deltas, stockDelta{id, -qty})
	return true, nil
}

func (t *memTx) IncrementQuantity(_ context.Context, id int64, qty int) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.products[id].Quantity += qty
	t.deltas = append(t.deltas, stockDelta{id, qty})
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, o *Order) error {
	t.order = o
	return nil
}

func (t *memTx) InsertOrderItems(_ context.Context, _ string, items []Reservation) error {
	if t.s.insertItemsErr != nil {
		return t.s.insertItemsErr
	}
	t.items = items
	return nil
}

func (t *memTx) Commit(context.Context) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.closed {
		return errTxClosed
	}
	if t.s.commitErr != nil {
		return t.s.commitErr
	}
	t.closed = true
	t.s.commits++
	if t.order != nil {
		t.s.orders[t.order.ID] = t.order
	}
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.closed {
		return errTxClosed
	}
	t.closed = true
	t.s.rollbacks++
	for i := len(t.deltas) - 1; i >= 0; i-- {
		d := t.deltas[i]
		t.s.products[d.id].Quantity -= d.qty
	}
	return nil
}

// fakeGateway records sale calls. With hang set it ignores its context and
// blocks until the test ends.
type fakeGateway struct {
	mu      sync.Mutex
	calls   int
	amounts []decimal.Decimal
	result  payment.Result
	err     error
	hang    chan struct{}
}

func approvingGateway() *fakeGateway {
	return &fakeGateway{result: payment.Result{Success: true, Transaction: []byte(`{"id":"txn-1"}`)}}
}

func (g *fakeGateway) Sale(_ context.Context, req payment.SaleRequest) (payment.Result, error) {
	g.mu.Lock()
	g.calls++
	g.amounts = append(g.amounts, req.Amount)
	hang := g.hang
	g.mu.Unlock()
	if hang != nil {
		<-hang
	}
	return g.result, g.err
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []kafkago.Message
}

func (p *recordingPublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, kafkago.Message{Key: key, Value: value, Headers: headers})
}

func (p *recordingPublisher) messages() []kafkago.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafkago.Message(nil), p.msgs...)
}
