package queue

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/leafbox-next/internal/config"
	"github.com/leafbox-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue notifications
	DefaultQueue = constants.QueueDefault
	// CriticalQueue money-adjacent bookkeeping
	CriticalQueue = constants.QueueCritical

	defaultConcurrency = 10
	defaultMaxRetry    = 5
)

// Client enqueues background work. A disabled client accepts and drops
// every task so callers fall back to running inline.
type Client struct {
	client   *asynq.Client
	maxRetry int
}

// NewClient creates the queue client
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	maxRetry := cfg.MaxRetry
	if maxRetry <= 0 {
		maxRetry = defaultMaxRetry
	}
	return &Client{
		client:   asynq.NewClient(redisOpt(cfg)),
		maxRetry: maxRetry,
	}, nil
}

// Enabled reports whether tasks are actually enqueued
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close closes the client
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueueNotificationDispatch pushes a notification task. Events that carry
// a dedupe key are enqueued at most once while the task is retained.
func (c *Client) EnqueueNotificationDispatch(payload NotificationDispatchPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewNotificationDispatchTask(payload)
	if err != nil {
		return err
	}
	taskID := ""
	if payload.DedupeKey != "" {
		taskID = payload.Event + ":" + payload.DedupeKey
	}
	return c.enqueue(task, DefaultQueue, taskID, opts)
}

// EnqueueDiscountUsage pushes a discount usage increment, once per order.
func (c *Client) EnqueueDiscountUsage(payload DiscountUsagePayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewDiscountUsageTask(payload)
	if err != nil {
		return err
	}
	taskID := fmt.Sprintf("%s:%d:%d", TaskDiscountUsage, payload.DiscountCodeID, payload.OrderID)
	return c.enqueue(task, CriticalQueue, taskID, opts)
}

func (c *Client) enqueue(task *asynq.Task, queueName, taskID string, opts []asynq.Option) error {
	options := []asynq.Option{asynq.Queue(queueName), asynq.MaxRetry(c.maxRetry)}
	if taskID != "" {
		options = append(options, asynq.TaskID(taskID))
	}
	// caller options come last so they win
	options = append(options, opts...)
	_, err := c.client.Enqueue(task, options...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return nil
}

// BuildServerConfig worker server settings. Critical bookkeeping is polled
// twice as often as notifications unless queues are configured.
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: defaultConcurrency,
		Queues:      map[string]int{CriticalQueue: 6, DefaultQueue: 3},
	}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			serverCfg.Concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			serverCfg.Queues = cfg.Queues
		}
	}
	return redisOpt(cfg), serverCfg
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host, port := "127.0.0.1", 6379
	opt := asynq.RedisClientOpt{}
	if cfg != nil {
		if h := strings.TrimSpace(cfg.Host); h != "" {
			host = h
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		opt.Password = cfg.Password
		opt.DB = cfg.DB
	}
	opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	return opt
}
