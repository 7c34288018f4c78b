package kafka

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	laneBuffer   = 64
	retryBackoff = 200 * time.Millisecond
	maxBackoff   = 10 * time.Second
)

// Handler returns nil only when the message is fully processed and its
// offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

// reader is the part of *kafka.Reader the consumer drives.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       reader
	topic   string
	workers int
	backoff time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // commit per message
	})
	return newConsumer(r, topic, workers)
}

func newConsumer(r reader, topic string, workers int) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, topic: topic, workers: workers, backoff: retryBackoff}
}

// Start fetches messages until ctx is cancelled and returns nil on shutdown.
//
// Every partition maps to one worker lane, so a partition is handled in
// offset order. A failing message is retried with backoff on its lane and
// nothing after it on that partition is handled or committed until it
// succeeds. Uncommitted messages are redelivered after a restart.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	ctx, cancel := context.WithCancel(ctx)
	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, laneBuffer)
		wg.Add(1)
		go func(lane <-chan kafka.Message) {
			defer wg.Done()
			for m := range lane {
				if !c.handle(ctx, h, m) {
					return
				}
			}
		}(lanes[i])
	}
	defer func() {
		cancel()
		for _, lane := range lanes {
			close(lane)
		}
		wg.Wait()
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case lanes[m.Partition%len(lanes)] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// handle runs h until it succeeds, then commits m. It reports false when ctx
// ends first, leaving m uncommitted.
func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) bool {
	wait := c.backoff
	for {
		if ctx.Err() != nil {
			return false
		}
		err := h(ctx, m)
		if err == nil {
			break
		}
		log.Printf("consumer %s partition %d offset %d: %v (retry in %s)", c.topic, m.Partition, m.Offset, err, wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return false
		}
		wait = min(wait*2, maxBackoff)
	}

	if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		// the next commit on this partition covers the offset
		log.Printf("consumer %s commit partition %d offset %d: %v", c.topic, m.Partition, m.Offset, err)
	}
	return true
}
