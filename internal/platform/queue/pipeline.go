// Package queue hands admitted runs to the external grading pipeline.
package queue

import (
	"context"
	"fmt"
	"time"

	"judge_gate/internal/domain/model"
	"judge_gate/internal/platform/config"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Pipeline enqueues a persisted run for grading. Enqueue returns once the
// message is accepted by the transport; the verdict is produced out of band.
// Enqueueing the same run twice is allowed, the grader deduplicates by id.
type Pipeline interface {
	Enqueue(ctx context.Context, run *model.Run) error
	Close() error
}

// Message is the payload read by graders.
type Message struct {
	RunID      int64     `json:"run_id"`
	GUID       string    `json:"guid"`
	ContestID  *int64    `json:"contest_id,omitempty"`
	Language   string    `json:"language"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func NewMessage(run *model.Run) Message {
	return Message{
		RunID:      run.ID,
		GUID:       run.GUID,
		ContestID:  run.ContestID,
		Language:   string(run.Language),
		EnqueuedAt: time.Now().UTC(),
	}
}

func Encode(msg Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal grading message for run %d: %w", msg.RunID, err)
	}
	return b, nil
}

func Decode(b []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(b, &msg); err != nil {
		return Message{}, fmt.Errorf("failed to unmarshal grading message: %w", err)
	}
	return msg, nil
}

// New builds the pipeline selected by cfg.PipelineKind. rdb is only used by
// the redis pipeline.
func New(ctx context.Context, cfg *config.Config, rdb redis.UniversalClient) (Pipeline, error) {
	switch cfg.PipelineKind {
	case "redis", "":
		return NewRedisPipeline(rdb, cfg.GradingQueueName), nil
	case "nats":
		return NewNatsPipeline(cfg.NatsURL, cfg.GradingQueueName)
	case "amqp":
		return NewAMQPPipeline(cfg.AMQPURL, cfg.GradingQueueName)
	case "sqs":
		return NewSQSPipeline(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
	}
	return nil, fmt.Errorf("unknown grading pipeline %q", cfg.PipelineKind)
}
