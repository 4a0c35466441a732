package main

import (
	"context"
	"log/slog"

	"github.com/rpsinghcodes/pg-db-crud/internal/platform/config"
	platformredis "github.com/rpsinghcodes/pg-db-crud/internal/platform/redis"
	audit "github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit"
	filestore "github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit/store/file"
	kafkastore "github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit/store/kafka"
	redisstore "github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit/store/redis"
)

const auditTopicReplication = 1

// buildAuditSink opens the audit log file and, when configured, the Kafka
// topic and Redis stream. Every event goes to every sink; the remote sinks
// sit behind a circuit breaker.
func buildAuditSink(ctx context.Context, cfg config.Audit, log *slog.Logger) (audit.Store, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	file, err := filestore.New(cfg.LogPath)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() { _ = file.Close() })
	sinks := audit.Fanout{file}

	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := kafkastore.New(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, kafka.Close)
		if err := kafka.EnsureTopic(ctx, auditTopicReplication); err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, audit.NewGuard("kafka", kafka, log))
		log.Info("kafka audit sink enabled", "topic", cfg.KafkaTopic, "brokers", len(cfg.KafkaBrokers))
	}

	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	if client != nil {
		closers = append(closers, func() { _ = client.Close() })
		sinks = append(sinks, audit.NewGuard("redis", redisstore.New(client.Client, cfg.RedisStream), log))
		log.Info("redis audit sink enabled", "stream", cfg.RedisStream)
	}

	return sinks, closeAll, nil
}
