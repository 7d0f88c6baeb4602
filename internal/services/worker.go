package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/huangang/campy/internal/config"
	"github.com/huangang/campy/pkg/logger"
)

const defaultWorkerConcurrency = 10

// Worker runs queued delivery tasks from Redis through a processor.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor func(context.Context, *DeliveryTask) error

	mu      sync.Mutex
	running bool
}

// NewWorker returns nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig) *Worker {
	if !cfg.Enabled {
		return nil
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultWorkerConcurrency
	}

	server := asynq.NewServer(redisClientOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{DeliveryQueueName: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			logger.Error().Err(err).Str("task_type", task.Type()).Int("retried", retried).Msg("delivery task failed")
		}),
	})

	w := &Worker{server: server, mux: asynq.NewServeMux()}
	w.mux.HandleFunc(TaskTypeDelivery, w.handleDeliveryTask)
	return w
}

func (w *Worker) SetProcessor(processor func(context.Context, *DeliveryTask) error) {
	w.processor = processor
}

// Start runs the asynq server in the background. Calling it twice is a
// no-op.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	w.running = true
	logger.Info().Str("queue", DeliveryQueueName).Msg("delivery worker started")
	return nil
}

// Stop waits for in-flight deliveries to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.server.Shutdown()
	w.running = false
	logger.Info().Msg("delivery worker stopped")
}

func (w *Worker) handleDeliveryTask(ctx context.Context, t *asynq.Task) error {
	task, err := decodeDeliveryTask(t.Payload())
	if err != nil {
		logger.Error().Err(err).Msg("dropping malformed delivery task")
		return asynq.SkipRetry
	}
	if w.processor == nil {
		logger.Warn().Uint("notification_id", task.NotificationID).Msg("no delivery processor configured")
		return nil
	}
	return w.processor(ctx, task)
}

func decodeDeliveryTask(payload []byte) (*DeliveryTask, error) {
	var task DeliveryTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return nil, err
	}
	return &task, nil
}
