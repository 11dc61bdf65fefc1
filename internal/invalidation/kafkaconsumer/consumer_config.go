package kafkaconsumer

import (
	"time"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool // false: a new group starts at the newest event

	H3Res         int
	ExpandM       float64 // widen every event area by this many meters
	LonScaleFloor float64
	DedupeSize    int // event ids remembered for duplicate detection
}

// FromConfig derives the consumer settings from the service config.
func FromConfig(cfg config.Config) Config {
	return Config{
		Brokers:             config.SplitCSV(cfg.Invalidation.Brokers),
		Topic:               cfg.Invalidation.Topic,
		GroupID:             cfg.Invalidation.GroupID,
		SessionTimeout:      30 * time.Second,
		Heartbeat:           3 * time.Second,
		RebalanceTimeout:    30 * time.Second,
		InitialOffsetOldest: false, // groups are per instance; a fresh one has nothing cached
		H3Res:               cfg.CacheH3Res,
		ExpandM:             cfg.MaxRadius(),
		LonScaleFloor:       cfg.LonScaleFloor,
		DedupeSize:          4096,
	}
}
