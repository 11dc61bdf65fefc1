// Command smoke checks that the services the resolver depends on are reachable.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/floodzone-resolver/internal/cache/redisstore"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/config"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/executor"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/httpclient"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
	"github.com/mohammed-shakir/floodzone-resolver/internal/invalidation"
	h3mapper "github.com/mohammed-shakir/floodzone-resolver/internal/mapper/h3"
	"github.com/mohammed-shakir/floodzone-resolver/internal/resolver"
)

func testRedis(ctx context.Context, addr string) error {
	fmt.Println("Redis test")
	cli, err := redisstore.New(ctx, addr)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Set(ctx, "fz:smoke", []byte("ok"), 30*time.Second); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	val, found, err := cli.Get(ctx, "fz:smoke")
	if err != nil {
		return fmt.Errorf("redis get: %w", err)
	}
	fmt.Printf("redis GET fz:smoke: %q found=%v\n", val, found)
	return nil
}

func testResolve(ctx context.Context, cfg config.Config, p model.Point) error {
	fmt.Println("Flood zone service test")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	exec, err := executor.New(logger, httpclient.NewOutbound(httpclient.WithTimeout(cfg.QueryTimeout)), cfg.ServiceURL, cfg.OutFields)
	if err != nil {
		return fmt.Errorf("executor: %w", err)
	}
	res, err := resolver.New(exec, resolver.Config{
		MaxCandidates: cfg.MaxCandidates,
		Radii:         cfg.FallbackRadii,
		LonScaleFloor: cfg.LonScaleFloor,
		QueryTimeout:  cfg.QueryTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("resolver: %w", err)
	}

	out, err := res.Resolve(ctx, p)
	if err != nil {
		return fmt.Errorf("resolve %v: %w", p, err)
	}
	// Only print a small part of the feature (geometries can be large)
	b, _ := json.Marshal(out.Meta)
	fmt.Printf("method: %s\n", b)
	if out.Feature != nil {
		props := string(out.Feature.Properties)
		if len(props) > 512 {
			props = props[:512] + "..."
		}
		fmt.Println("properties:", props)
	}
	return nil
}

func testKafka(brokers []string, topic string) error {
	fmt.Println("Kafka test")

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Version = sarama.V3_6_0_0
	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return fmt.Errorf("producer create: %w", err)
	}
	defer func() { _ = prod.Close() }()

	ev := invalidation.Event{
		Version: 1,
		ID:      "smoke-" + strconv.FormatInt(time.Now().UnixNano(), 36),
		Op:      "update",
		Layer:   "smoke",
		TS:      time.Now().UTC(),
		BBox:    &invalidation.BBox{X1: -95.40, Y1: 29.74, X2: -95.35, Y2: 29.78, SRID: "EPSG:4326"},
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("event: %w", err)
	}
	msgBytes, _ := json.Marshal(ev)

	consumer, err := sarama.NewConsumer(brokers, cfg)
	if err != nil {
		return fmt.Errorf("consumer create: %w", err)
	}
	defer func() { _ = consumer.Close() }()

	pc, err := consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("consume partition: %w", err)
	}
	defer func() { _ = pc.Close() }()

	part, off, err := prod.SendMessage(&sarama.ProducerMessage{
		Topic: topic, Value: sarama.ByteEncoder(msgBytes),
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	fmt.Printf("produced one message partition=%d offset=%d\n", part, off)

	if part != 0 {
		fmt.Println("message landed on another partition; skipping consume")
		return nil
	}
	select {
	case m := <-pc.Messages():
		fmt.Println("consumed:", string(m.Value))
	case <-time.After(5 * time.Second):
		fmt.Println("no message consumed (timeout)")
	}
	return nil
}

func demoH3(p model.Point, res int) error {
	fmt.Println("H3 demo")
	m := h3mapper.New()
	cell, err := m.CellForPoint(p, res)
	if err != nil {
		return err
	}
	area := resolver.EnvelopeAround(p, 3000, 0.2)
	cells, err := m.CellsForEnvelope(area, res)
	if err != nil {
		return err
	}
	fmt.Printf("H3 cell: %s, cells within 3 km: %d\n", cell, len(cells))
	return nil
}

func main() {
	_ = godotenv.Load(".env")
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// downtown Houston
	p := model.Point{Lat: 29.7604, Lon: -95.3698}

	if err := testRedis(ctx, cfg.RedisAddr); err != nil {
		fmt.Println("Redis error:", err)
		os.Exit(1)
	}
	if err := testResolve(ctx, cfg, p); err != nil {
		fmt.Println("Flood zone service error:", err)
		os.Exit(1)
	}
	if err := testKafka(config.SplitCSV(cfg.Invalidation.Brokers), strings.TrimSpace(cfg.Invalidation.Topic)); err != nil {
		fmt.Println("Kafka error:", err)
		os.Exit(1)
	}
	if err := demoH3(p, cfg.CacheH3Res); err != nil {
		fmt.Println("H3 error:", err)
		os.Exit(1)
	}
	fmt.Println("All tests completed")
}
