package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/huangang/campy/internal/config"
	"github.com/huangang/campy/pkg/logger"
)

const (
	TaskTypeDelivery  = "notification:deliver"
	DeliveryQueueName = "notifications"
)

// Channel is an out-of-app delivery route.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// DeliveryTask is one message to hand to a Sender.
type DeliveryTask struct {
	NotificationID uint    `json:"notification_id,omitempty"`
	RecipientID    uint    `json:"recipient_id"`
	Channel        Channel `json:"channel"`
	To             string  `json:"to"`
	Subject        string  `json:"subject"`
	Body           string  `json:"body"`
}

// DeliveryQueue hands delivery tasks to a processor.
type DeliveryQueue interface {
	Enqueue(task *DeliveryTask) error
	// IsAsync returns true if tasks are processed by a separate worker
	IsAsync() bool
	Close() error
}

var (
	globalDeliveryQueue DeliveryQueue
	deliveryQueueOnce   sync.Once
)

// InitDeliveryQueue picks the Redis-backed queue when enabled and reachable,
// otherwise the in-process one.
func InitDeliveryQueue(cfg *config.Config) DeliveryQueue {
	deliveryQueueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncQueue(&cfg.Redis)
			if err != nil {
				logger.Warnf("[DeliveryQueue] Redis unavailable, falling back to sync mode: %v", err)
				globalDeliveryQueue = NewSyncQueue()
			} else {
				logger.Infof("[DeliveryQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
				globalDeliveryQueue = queue
			}
		} else {
			logger.Infof("[DeliveryQueue] Sync queue initialized (Redis disabled)")
			globalDeliveryQueue = NewSyncQueue()
		}
	})
	return globalDeliveryQueue
}

func GetDeliveryQueue() DeliveryQueue {
	return globalDeliveryQueue
}

// AsyncQueue implements DeliveryQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := redisClientOpt(cfg)
	client := asynq.NewClient(redisOpt)

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

func redisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func (q *AsyncQueue) Enqueue(task *DeliveryTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeDelivery, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue(DeliveryQueueName),
		asynq.MaxRetry(MaxRetryCount),
	)
	if err != nil {
		return err
	}

	logger.Debug().Str("task_id", info.ID).Str("channel", string(task.Channel)).Msg("delivery enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue processes tasks in a goroutine of the current process.
type SyncQueue struct {
	processor func(context.Context, *DeliveryTask) error
	wg        sync.WaitGroup
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

func (q *SyncQueue) SetProcessor(processor func(context.Context, *DeliveryTask) error) {
	q.processor = processor
}

func (q *SyncQueue) Enqueue(task *DeliveryTask) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] no processor set, %s delivery to user %d dropped", task.Channel, task.RecipientID)
		return nil
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.processor(context.Background(), task); err != nil {
			logger.Error().Err(err).Str("channel", string(task.Channel)).Uint("recipient_id", task.RecipientID).Msg("delivery failed")
		}
	}()

	return nil
}

// Wait blocks until every enqueued task has been processed.
func (q *SyncQueue) Wait() {
	q.wg.Wait()
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

// Close waits for in-flight tasks.
func (q *SyncQueue) Close() error {
	q.wg.Wait()
	return nil
}
