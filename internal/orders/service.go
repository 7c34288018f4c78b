package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ariefcatur/widget-store/internal/money"
	"github.com/ariefcatur/widget-store/internal/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stage is a step of order placement. A failed placement is logged with
// the stage it failed in.
type Stage string

const (
	StageValidatingIntegrity Stage = "validating_integrity"
	StageReservingInventory  Stage = "reserving_inventory"
	StageChargingPayment     Stage = "charging_payment"
	StagePersisting          Stage = "persisting"
	StageCommitted           Stage = "committed"
)

// ListLimit caps the order listing.
const ListLimit = 50

const defaultPaymentTimeout = 30 * time.Second

type Service struct {
	Store          Store
	Gateway        payment.Gateway
	PlacedEvents   Publisher // may be nil
	StatusEvents   Publisher // may be nil
	PaymentTimeout time.Duration
	ServiceName    string
}

// PlaceOrder verifies the checkout's pricing, reserves stock, charges the
// customer and records the order. Any failure leaves stock and orders as
// they were before the call.
func (s *Service) PlaceOrder(ctx context.Context, c Checkout) (*Order, error) {
	stage := StageValidatingIntegrity
	o, err := s.placeOrder(ctx, c, &stage)
	if err != nil {
		log.Printf("place order failed: stage=%s kind=%s err=%v", stage, KindOf(err), err)
		return nil, err
	}
	Emit(s.PlacedEvents, o.ID, NewEnvelope(EventOrderPlaced, s.ServiceName, o.ID, c.TraceID, OrderPlacedPayload{
		OrderID:  o.ID,
		Customer: o.Customer,
		Items:    reservations(o.Items),
		Total:    o.Total.String(),
	}))
	return o, nil
}

func (s *Service) placeOrder(ctx context.Context, c Checkout, stage *Stage) (*Order, error) {
	if len(c.Items) == 0 {
		return nil, ValidationError("cart has no items")
	}
	pricing, err := Verifier{Products: s.Store}.Verify(ctx, Claim{
		Items:    c.Items,
		Subtotal: c.Subtotal,
		Tax:      c.Tax,
		Total:    c.Total,
		Shipping: c.ShippingCost,
		Region:   c.Region,
	})
	if err != nil {
		return nil, err
	}

	*stage = StageReservingInventory
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	reserved, err := Reserve(ctx, tx, c.Items)
	if err != nil {
		return nil, err
	}

	*stage = StageChargingPayment
	res, err := s.charge(ctx, pricing.Total, c.Nonce)
	if err != nil {
		return nil, PaymentError(err)
	}
	if !res.Success {
		return nil, PaymentError(nil)
	}

	*stage = StagePersisting
	o := newOrder(c, pricing, reserved, res.Transaction)
	if err := tx.InsertOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	if err := tx.InsertOrderItems(ctx, o.ID, reserved); err != nil {
		return nil, fmt.Errorf("insert order items: %w", err)
	}
	// TODO: void the sale when commit fails after a successful charge.
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	*stage = StageCommitted
	return o, nil
}

// charge makes exactly one sale call and gives up once the payment timeout
// passes, even if the gateway ignores its context.
func (s *Service) charge(ctx context.Context, amount decimal.Decimal, nonce string) (payment.Result, error) {
	timeout := s.PaymentTimeout
	if timeout <= 0 {
		timeout = defaultPaymentTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		res payment.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.Gateway.Sale(ctx, payment.SaleRequest{
			Amount:              amount,
			Nonce:               nonce,
			SubmitForSettlement: true,
		})
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-ctx.Done():
		return payment.Result{}, fmt.Errorf("payment gateway: %w", ctx.Err())
	}
}

func newOrder(c Checkout, p Pricing, reserved []Reservation, txn json.RawMessage) *Order {
	o := &Order{
		ID:                   uuid.NewString(),
		Customer:             c.Customer,
		CustomerInfo:         c.CustomerInfo,
		Subtotal:             money.NewAmount(p.Subtotal),
		Discount:             money.NewAmount(p.Discount),
		Tax:                  money.NewAmount(p.Tax),
		ShippingCost:         money.NewAmount(p.Shipping),
		Total:                money.NewAmount(p.Total),
		ShippingMethod:       c.ShippingMethod,
		ShippingAddress:      c.ShippingAddress,
		ProcessorTransaction: txn,
		Status:               StatusPlaced,
		OrderDate:            time.Now().UTC(),
	}
	o.Items = make([]OrderItem, 0, len(reserved))
	for _, r := range reserved {
		o.TotalItemsQuantity += r.Quantity
		o.Items = append(o.Items, OrderItem{OrderID: o.ID, ProductID: r.ProductID, Quantity: r.Quantity})
	}
	return o
}

func reservations(items []OrderItem) []Reservation {
	out := make([]Reservation, 0, len(items))
	for _, it := range items {
		out = append(out, Reservation{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.Store.GetOrder(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context) ([]OrderSummary, error) {
	return s.Store.ListOrders(ctx, ListLimit)
}

// UpdateOrderStatus moves an order to status `to` if its current status
// allows it.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, to Status, traceID string) (*Order, error) {
	if !to.Valid() {
		return nil, ValidationError("unknown status %q", to)
	}
	err := s.Store.UpdateOrderStatus(ctx, id, PriorStatuses(to), to)
	if errors.Is(err, ErrStatusMismatch) {
		return nil, s.transitionConflict(ctx, id, to)
	}
	if err != nil {
		return nil, err
	}
	o, err := s.Store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	Emit(s.StatusEvents, o.ID, NewEnvelope(EventOrderStatusChanged, s.ServiceName, o.ID, traceID,
		OrderStatusChangedPayload{OrderID: o.ID, Status: o.Status}))
	return o, nil
}

// transitionConflict explains a refused status change from the order's
// current status.
func (s *Service) transitionConflict(ctx context.Context, id string, to Status) error {
	o, err := s.Store.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if CanTransition(o.Status, to) {
		return ConflictError("order %s changed concurrently, retry", id)
	}
	return ConflictError("order cannot move from %q to %q", o.Status, to)
}

func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	return s.Store.DeleteOrder(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.Store.ListProducts(ctx)
}

// GetProduct returns an active product. Inactive products are not found.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !p.IsActive {
		return Product{}, NotFoundError("product %d not found", id)
	}
	return p, nil
}
