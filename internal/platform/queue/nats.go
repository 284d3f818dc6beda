package queue

import (
	"context"
	"fmt"

	"judge_gate/internal/domain/model"

	"github.com/nats-io/nats.go"
)

// NatsPipeline publishes grading messages on a subject.
type NatsPipeline struct {
	nc      *nats.Conn
	subject string
}

func NewNatsPipeline(url, subject string) (*NatsPipeline, error) {
	nc, err := nats.Connect(url, nats.Name("judge_gate"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &NatsPipeline{nc: nc, subject: subject}, nil
}

func (p *NatsPipeline) Enqueue(ctx context.Context, run *model.Run) error {
	body, err := Encode(NewMessage(run))
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, body); err != nil {
		return fmt.Errorf("failed to publish run %d to NATS: %w", run.ID, err)
	}
	// Flush so a dead server surfaces here instead of dropping the message.
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}
	return nil
}

func (p *NatsPipeline) Close() error {
	p.nc.Close()
	return nil
}
