package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"rewards-service/internal/services"
)

type NoticeProcessor interface {
	Process(ctx context.Context, n services.Notice) error
}

type Worker struct {
	Processor NoticeProcessor
}

func NewWorker(processor NoticeProcessor) *Worker {
	return &Worker{Processor: processor}
}

func (w *Worker) HandleNotification(ctx context.Context, t *asynq.Task) error {
	n, err := decodeNotice(t)
	if err != nil {
		return err
	}
	return w.Processor.Process(ctx, n)
}

func NewServeMux(processor NoticeProcessor) *asynq.ServeMux {
	worker := NewWorker(processor)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeNotificationDeliver, worker.HandleNotification)
	return mux
}

// NewServer builds the asynq server. Run it with srv.Run(NewServeMux(...)).
func NewServer(redisOpt asynq.RedisClientOpt, concurrency int, logger *zap.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}
	return asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			Logger: logger.Sugar(),
		},
	)
}
