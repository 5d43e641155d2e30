// Package events announces finished index builds over Kafka so running
// searchers can switch to the new generation.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/kafka"
)

// IndexComplete is published once per successful build.
type IndexComplete struct {
	Generation int64     `json:"generation"`
	IndexDir   string    `json:"index_dir"`
	DocCount   int       `json:"doc_count"`
	TermCount  int       `json:"term_count"`
	NumShards  int       `json:"num_shards"`
	BuiltAt    time.Time `json:"built_at"`
}

// FromManifest describes the build recorded in m.
func FromManifest(indexDir string, m index.Manifest) IndexComplete {
	return IndexComplete{
		Generation: m.Generation,
		IndexDir:   indexDir,
		DocCount:   m.DocCount,
		TermCount:  m.TermCount,
		NumShards:  m.NumShards,
		BuiltAt:    m.BuiltAt,
	}
}

// Manifest returns the manifest fields of the event.
func (e IndexComplete) Manifest() index.Manifest {
	return index.Manifest{
		Generation: e.Generation,
		DocCount:   e.DocCount,
		TermCount:  e.TermCount,
		NumShards:  e.NumShards,
		BuiltAt:    e.BuiltAt,
	}
}

// Publisher sends IndexComplete events.
type Publisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

func NewPublisher(cfg config.KafkaConfig) *Publisher {
	return &Publisher{
		producer: kafka.NewProducer(cfg, cfg.Topics.IndexComplete),
		logger:   slog.Default().With("component", "index-events"),
	}
}

func (p *Publisher) Publish(ctx context.Context, ev IndexComplete) error {
	if err := p.producer.Publish(ctx, ev.IndexDir, ev); err != nil {
		return fmt.Errorf("announcing generation %d: %w", ev.Generation, err)
	}
	p.logger.Info("index build announced", "generation", ev.Generation, "index_dir", ev.IndexDir)
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}

// Handler turns fn into a Kafka message handler. Undecodable messages are
// logged and dropped so they cannot block the topic.
func Handler(fn func(ctx context.Context, ev IndexComplete) error) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-events")
	return func(ctx context.Context, key, value []byte) error {
		ev, err := kafka.DecodeJSON[IndexComplete](value)
		if err != nil {
			logger.Error("dropping undecodable event", "key", string(key), "error", err)
			return nil
		}
		return fn(ctx, ev)
	}
}

// NewListener subscribes to IndexComplete events. Every listener joins its
// own consumer group, so each searcher process sees every build.
func NewListener(cfg config.KafkaConfig, fn func(ctx context.Context, ev IndexComplete) error) *kafka.Consumer {
	group := cfg
	group.ConsumerGroup = fmt.Sprintf("%s-%s", cfg.ConsumerGroup, uuid.NewString())
	return kafka.NewConsumer(group, cfg.Topics.IndexComplete, Handler(fn))
}
