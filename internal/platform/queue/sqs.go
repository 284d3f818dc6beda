package queue

import (
	"context"
	"fmt"

	"judge_gate/internal/domain/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type sqsSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPipeline sends grading messages to an SQS queue.
type SQSPipeline struct {
	client   sqsSender
	queueURL string
}

func NewSQSPipeline(ctx context.Context, region, queueURL string) (*SQSPipeline, error) {
	if queueURL == "" {
		return nil, fmt.Errorf("sqs pipeline requires a queue url")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &SQSPipeline{client: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

func (p *SQSPipeline) Enqueue(ctx context.Context, run *model.Run) error {
	body, err := Encode(NewMessage(run))
	if err != nil {
		return err
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send run %d to SQS: %w", run.ID, err)
	}
	return nil
}

func (p *SQSPipeline) Close() error { return nil }
