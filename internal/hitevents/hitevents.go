// Package hitevents publishes one Kafka message per served flood-zone lookup.
package hitevents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/observability"
	"github.com/mohammed-shakir/floodzone-resolver/internal/mapper"
)

type Event struct {
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Cell     string    `json:"cell,omitempty"`
	Method   string    `json:"method"`
	RadiusM  float64   `json:"radius_m,omitempty"`
	TS       time.Time `json:"ts"`
	Scenario string    `json:"scenario,omitempty"`
}

type Options struct {
	Topic     string
	QueueSize int
	H3Res     int
	Scenario  string
}

type Publisher struct {
	opts    Options
	events  chan Event
	prod    sarama.AsyncProducer
	mapr    mapper.Interface
	logger  *slog.Logger
	stopped chan struct{}
	now     func() time.Time
}

// NewPublisher connects an async producer to brokers.
func NewPublisher(brokers []string, opts Options, mapr mapper.Interface, logger *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("hitevents: create async producer: %w", err)
	}
	return NewWithProducer(prod, opts, mapr, logger), nil
}

// NewWithProducer takes ownership of prod.
func NewWithProducer(prod sarama.AsyncProducer, opts Options, mapr mapper.Interface, logger *slog.Logger) *Publisher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		opts:    opts,
		events:  make(chan Event, opts.QueueSize),
		prod:    prod,
		mapr:    mapr,
		logger:  logger,
		stopped: make(chan struct{}),
		now:     time.Now,
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.logger.Warn("hitevents: marshal error", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.opts.Topic,
				Key:   sarama.StringEncoder(ev.Cell),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				observability.IncHitEventDropped("producer")
				p.logger.Warn("hitevents: producer error", "err", err)
			}
		}
	}()

	return p
}

// Record queues an event for res. It never blocks: when the queue is full
// the event is dropped and counted.
func (p *Publisher) Record(_ context.Context, pt model.Point, res model.Resolution) {
	ev := Event{
		Lat:      pt.Lat,
		Lon:      pt.Lon,
		Method:   string(res.Meta.Method),
		RadiusM:  res.Meta.RadiusM,
		TS:       p.now().UTC(),
		Scenario: p.opts.Scenario,
	}
	if p.mapr != nil {
		if cell, err := p.mapr.CellForPoint(pt, p.opts.H3Res); err == nil {
			ev.Cell = cell
		}
	}
	p.Publish(ev)
}

func (p *Publisher) Publish(ev Event) {
	select {
	case p.events <- ev:
	default:
		observability.IncHitEventDropped("queue_full")
	}
}

// Close flushes queued events and closes the producer. Publish must not be
// called afterwards.
func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped

	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("hitevents: close producer: %w", err)
	}
	return nil
}
