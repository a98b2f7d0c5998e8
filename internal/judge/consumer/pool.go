package consumer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"grader/internal/common/mq"
	"grader/internal/config"
	"grader/pkg/utils/logger"
)

// SpawnWorkers starts max_worker consumers on the same queue. Each
// worker gets a unique consumer tag and box id = worker index, which
// guarantees disjoint boxes across concurrent workers. The returned
// channel receives one error per worker exit; any worker exit is
// fatal for the process.
func SpawnWorkers(ctx context.Context, queue *mq.RabbitMQ, queueName string, cfg *config.Config, store SubmissionStore, root string) (<-chan error, error) {
	workers := cfg.Judge.MaxWorker
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		tag := fmt.Sprintf("judge-%d-%s", i, uuid.NewString()[:8])
		deliveries, err := queue.Consume(queueName, tag)
		if err != nil {
			return nil, err
		}
		worker := New(cfg, store, root, i, tag)
		logger.Info(ctx, "worker started", zap.Int("worker", i), zap.String("consumer_tag", tag))
		go func() {
			errCh <- worker.Run(ctx, deliveries)
		}()
	}
	return errCh, nil
}
