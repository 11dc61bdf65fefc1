package hitevents

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
	h3mapper "github.com/mohammed-shakir/floodzone-resolver/internal/mapper/h3"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRecord_PublishesEventWithCell(t *testing.T) {
	cfg := mocks.NewTestConfig()
	prod := mocks.NewAsyncProducer(t, cfg)

	var got Event
	prod.ExpectInputWithMessageCheckerFunctionAndSucceed(func(m *sarama.ProducerMessage) error {
		if m.Topic != "floodzone-hits" {
			t.Errorf("topic=%q", m.Topic)
		}
		b, err := m.Value.Encode()
		if err != nil {
			return err
		}
		return json.Unmarshal(b, &got)
	})

	p := NewWithProducer(prod, Options{Topic: "floodzone-hits", H3Res: 7, Scenario: "cache"}, h3mapper.New(), quiet())
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return ts }

	pt := model.Point{Lat: 27.9506, Lon: -82.4572}
	p.Record(context.Background(), pt, model.Resolution{Meta: model.Meta{Method: model.MethodEnvelopeFallback, RadiusM: 1000}})
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	wantCell, _ := h3mapper.New().CellForPoint(pt, 7)
	if got.Cell != wantCell || got.Method != "envelope_fallback" || got.RadiusM != 1000 {
		t.Fatalf("unexpected event %+v", got)
	}
	if !got.TS.Equal(ts) || got.Scenario != "cache" {
		t.Fatalf("unexpected event %+v", got)
	}
}

type blockedProducer struct {
	sarama.AsyncProducer
	in   chan *sarama.ProducerMessage
	errs chan *sarama.ProducerError
}

func (b *blockedProducer) Input() chan<- *sarama.ProducerMessage { return b.in }
func (b *blockedProducer) Errors() <-chan *sarama.ProducerError  { return b.errs }
func (b *blockedProducer) Close() error {
	close(b.errs)
	return nil
}

func TestPublish_DropsWhenQueueFull(t *testing.T) {
	// nobody reads Input, so the worker stalls on the first event
	bp := &blockedProducer{in: make(chan *sarama.ProducerMessage), errs: make(chan *sarama.ProducerError)}
	p := NewWithProducer(bp, Options{Topic: "t", QueueSize: 1}, nil, quiet())

	done := make(chan struct{})
	go func() {
		for range 10 {
			p.Publish(Event{Method: "none"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
}
