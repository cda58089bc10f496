package stats

import (
	"context"
	"log/slog"

	"github.com/searchcore/kbsearch/pkg/kafka"
)

// Collector decouples request handling from stats recording: Track never
// blocks, dropping events when the buffer is full. Each event is applied to
// the Aggregator and, when a producer is configured, published to Kafka.
type Collector struct {
	aggregator *Aggregator
	producer   *kafka.Producer
	eventCh    chan any
	logger     *slog.Logger
	done       chan struct{}
}

// NewCollector creates a Collector feeding the given aggregator. producer
// may be nil to disable Kafka mirroring.
func NewCollector(aggregator *Aggregator, producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		aggregator: aggregator,
		producer:   producer,
		eventCh:    make(chan any, bufferSize),
		logger:     slog.Default().With("component", "stats-collector"),
		done:       make(chan struct{}),
	}
}

// Start launches the consume goroutine. It runs until ctx is cancelled or
// Close is called.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.apply(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("stats collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an event without blocking.
func (c *Collector) Track(event any) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("stats event dropped (buffer full)")
	}
}

// Close stops the collector after flushing buffered events.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) apply(ctx context.Context, event any) {
	switch e := event.(type) {
	case SearchEvent:
		c.aggregator.RecordSearch(e)
	case IndexEvent:
		c.aggregator.RecordIndex(e)
	default:
		c.logger.Warn("unknown stats event type")
		return
	}
	if c.producer != nil {
		if err := c.producer.Publish(ctx, kafka.Event{Key: "stats", Value: event}); err != nil {
			c.logger.Error("failed to publish stats event", "error", err)
		}
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.apply(context.Background(), event)
		default:
			return
		}
	}
}
