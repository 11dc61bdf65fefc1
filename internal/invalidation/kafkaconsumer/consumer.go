package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
	obs "github.com/mohammed-shakir/floodzone-resolver/internal/core/observability"
	"github.com/mohammed-shakir/floodzone-resolver/internal/invalidation"
	mylog "github.com/mohammed-shakir/floodzone-resolver/internal/logger"
)

type CellMapper interface {
	CellsForEnvelope(env model.Envelope, res int) ([]string, error)
}

// Invalidator drops cached resolutions by H3 cell. *resultcache.Cache
// implements it.
type Invalidator interface {
	InvalidateCells(ctx context.Context, cells []string) (int, error)
}

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	zlog   *zerolog.Logger
	inv    Invalidator
	mapper CellMapper
	seen   *lru.Cache[string, struct{}]

	mu     sync.RWMutex
	claims map[string][]int32
}

func New(cfg Config, logger *slog.Logger, zl *zerolog.Logger, inv Invalidator, mapper CellMapper) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DedupeSize <= 0 {
		cfg.DedupeSize = 4096
	}
	if cfg.LonScaleFloor <= 0 {
		cfg.LonScaleFloor = 0.2
	}
	seen, _ := lru.New[string, struct{}](cfg.DedupeSize)
	base := mylog.WithComponent(context.Background(), "kafka_consumer")
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		zlog:   mylog.FromContext(base, zl),
		inv:    inv,
		mapper: mapper,
		seen:   seen,
	}
}

// consumes invalidation events from kafka until ctx is done
func (c *Consumer) Start(ctx context.Context) error {
	if c.inv == nil || c.mapper == nil {
		return errors.New("kafkaconsumer: missing dependencies (invalidator/mapper)")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := c.handler()

	c.logger.Info("kafka invalidation consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("kafka invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				if ctx.Err() != nil {
					continue
				}
				obs.IncKafkaConsumerError("consume")
				c.zlog.Error().Err(err).
					Strs("brokers", c.cfg.Brokers).
					Str("topic", c.cfg.Topic).
					Msg("kafka consumer error")
				select {
				case <-ctx.Done():
				case <-time.After(2 * time.Second):
				}
			}
		}
	}
}

func (c *Consumer) handler() *groupHandler {
	return &groupHandler{
		process: c.ProcessOne,
		onSetup: func(claims map[string][]int32) {
			c.mu.Lock()
			c.claims = claims
			c.mu.Unlock()
		},
		onClean: func() {
			c.mu.Lock()
			c.claims = nil
			c.mu.Unlock()
		},
	}
}

// Ready reports an error until the group has assigned this consumer a session.
func (c *Consumer) Ready(context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.claims == nil {
		return errors.New("kafka consumer has no active session")
	}
	return nil
}

// ProcessOne applies a single invalidation event. Undecodable or invalid
// events are counted and skipped, since redelivery cannot fix them; cache
// failures are returned so the message is retried.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()
	zl := mylog.FromContext(ctx, c.zlog)

	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		obs.IncKafkaConsumerError("decode")
		zl.Error().Err(err).
			Str("kind", "decode").
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("kafka error")
		return nil
	}
	if err := ev.Validate(); err != nil {
		obs.IncKafkaConsumerError("invalid")
		zl.Warn().Err(err).
			Str("kind", "invalid").
			Int64("offset", msg.Offset).
			Msg("kafka event rejected")
		return nil
	}
	if ev.ID != "" && c.seen.Contains(ev.ID) {
		c.logger.Debug("duplicate invalidation event skipped", "id", ev.ID)
		return nil
	}

	cells, err := c.cellsForEvent(ev)
	if err != nil {
		obs.IncKafkaConsumerError("mapping")
		zl.Warn().Err(err).Str("kind", "mapping").Int64("offset", msg.Offset).Msg("kafka event skipped")
		return nil
	}

	n, err := c.inv.InvalidateCells(ctx, cells)
	if err != nil {
		obs.IncKafkaConsumerError("invalidate")
		zl.Error().Err(err).
			Str("kind", "invalidate").
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int("cells", len(cells)).
			Msg("kafka error")
		return fmt.Errorf("invalidate cells: %w", err)
	}
	if ev.ID != "" {
		c.seen.Add(ev.ID, struct{}{})
	}

	c.logger.Debug("invalidated keys",
		"layer", ev.Layer, "op", ev.Op, "cells", len(cells), "keys", n, "took", time.Since(start))
	zl.Info().
		Str("event", "invalidation").
		Str("op", ev.Op).Str("layer", ev.Layer).
		Int("cells", len(cells)).Int("keys", n).
		Msg("invalidated keys")
	return nil
}

func (c *Consumer) cellsForEvent(ev invalidation.Event) ([]string, error) {
	area, err := ev.AffectedArea(c.cfg.ExpandM, c.cfg.LonScaleFloor)
	if err != nil {
		return nil, fmt.Errorf("affected area: %w", err)
	}
	cells, err := c.mapper.CellsForEnvelope(area, c.cfg.H3Res)
	if err != nil {
		return nil, fmt.Errorf("CellsForEnvelope: %w", err)
	}
	return cells, nil
}
