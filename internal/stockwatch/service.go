// Package stockwatch follows placed orders and raises a low-stock event for
// every ordered product whose remaining quantity falls to the threshold.
package stockwatch

import (
	"context"
	"fmt"
	"log"
	"strconv"

	kafkax "github.com/ariefcatur/widget-store/internal/kafka"
	"github.com/ariefcatur/widget-store/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
)

// Deduper records handled event ids.
type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

type Service struct {
	Products    orders.ProductReader
	Dedup       Deduper
	Alerts      orders.Publisher
	Threshold   int
	ServiceName string
}

// HandleOrderPlaced is the consumer handler for order.placed. An error leaves
// the event unrecorded so the consumer's retry of the same message runs it
// again.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	if et := kafkax.Header(m, orders.HeaderEventType); et != "" && et != orders.EventOrderPlaced {
		return nil
	}

	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		// a poison message would block the partition forever
		log.Printf("stockwatch: drop undecodable message at offset %d: %v", m.Offset, err)
		return nil
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	first, err := s.Dedup.FirstSeen(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		return nil
	}

	if err := s.check(ctx, env); err != nil {
		if ferr := s.Dedup.Forget(ctx, env.EventID); ferr != nil {
			log.Printf("stockwatch: forget %s: %v", env.EventID, ferr)
		}
		return err
	}
	return nil
}

func (s *Service) check(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		log.Printf("stockwatch: drop event %s: %v", env.EventID, err)
		return nil
	}

	for _, it := range p.Items {
		prod, err := s.Products.GetProduct(ctx, it.ProductID)
		if err != nil {
			if orders.KindOf(err) == orders.KindNotFound {
				continue
			}
			return fmt.Errorf("load product %d: %w", it.ProductID, err)
		}
		if prod.Quantity > s.Threshold {
			continue
		}
		s.publishLowStock(prod, p.OrderID, env.TraceID)
	}
	return nil
}

func (s *Service) publishLowStock(p orders.Product, orderID, trace string) {
	key := strconv.FormatInt(p.ID, 10)
	orders.Emit(s.Alerts, key, orders.NewEnvelope(orders.EventLowStock, s.ServiceName, key, trace,
		orders.LowStockPayload{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  p.Quantity,
			Threshold: s.Threshold,
			OrderID:   orderID,
		}))
}
