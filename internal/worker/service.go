package worker

import (
	"context"
	"errors"
	"time"

	"github.com/leafbox-next/internal/config"
	"github.com/leafbox-next/internal/logger"
	"github.com/leafbox-next/internal/queue"

	"github.com/hibiken/asynq"
)

const shutdownTimeout = 15 * time.Second

// ErrQueueDisabled worker mode needs the queue
var ErrQueueDisabled = errors.New("queue disabled")

// Service runs the asynq server that drains notification and discount
// usage tasks.
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewService creates the queue worker service
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, ErrQueueDisabled
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.Logger = logger.SW("component", "asynq")
	serverCfg.ShutdownTimeout = shutdownTimeout
	serverCfg.ErrorHandler = asynq.ErrorHandlerFunc(logTaskFailure)

	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{server: asynq.NewServer(opt, serverCfg), mux: mux}, nil
}

func logTaskFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	taskID, _ := asynq.GetTaskID(ctx)
	logger.Warnw("worker_task_failed",
		"task_type", task.Type(),
		"task_id", taskID,
		"retried", retried,
		"max_retry", maxRetry,
		"final", retried >= maxRetry || errors.Is(err, asynq.SkipRetry),
		"error", err,
	)
}

// Name service name
func (s *Service) Name() string {
	return "worker"
}

// Start blocks until the server stops
func (s *Service) Start(_ context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("worker not initialized")
	}
	logger.Infow("worker_starting", "name", s.Name())
	return s.server.Run(s.mux)
}

// Stop lets in-flight tasks finish within the shutdown timeout
func (s *Service) Stop(_ context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	logger.Infow("worker_stopped", "name", s.Name())
	return nil
}
