package queue

import (
	"context"
	"fmt"

	"judge_gate/internal/domain/model"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPipeline publishes persistent messages to a durable RabbitMQ queue.
type AMQPPipeline struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewAMQPPipeline(url, queue string) (*AMQPPipeline, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return &AMQPPipeline{conn: conn, ch: ch, queue: queue}, nil
}

func (p *AMQPPipeline) Enqueue(ctx context.Context, run *model.Run) error {
	body, err := Encode(NewMessage(run))
	if err != nil {
		return err
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    run.GUID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish run %d to RabbitMQ: %w", run.ID, err)
	}
	return nil
}

func (p *AMQPPipeline) Close() error {
	p.ch.Close()
	return p.conn.Close()
}
