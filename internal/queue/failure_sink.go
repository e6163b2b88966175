package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// FailureSink durably records a job that exhausted its retries.
type FailureSink interface {
	RecordFailure(ctx context.Context, queueName string, job *Job, jobErr error) error
}

// DeadLetter is the wire form of a recorded failure, kept for manual
// inspection and replay.
type DeadLetter struct {
	ID         string    `json:"id"`
	Queue      string    `json:"queue"`
	JobID      string    `json:"job_id"`
	JobKey     string    `json:"job_key"`
	Payload    any       `json:"payload"`
	Attempts   int       `json:"attempts"`
	Error      string    `json:"error"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	FailedAt   time.Time `json:"failed_at"`
}

// AMQPFailureSink publishes dead letters to a durable RabbitMQ queue.
type AMQPFailureSink struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue amqp.Queue
}

// NewAMQPFailureSink dials the broker and declares the durable dead-letter
// queue.
func NewAMQPFailureSink(url, queueName string) (*AMQPFailureSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPFailureSink{conn: conn, ch: ch, queue: q}, nil
}

func (s *AMQPFailureSink) RecordFailure(ctx context.Context, queueName string, job *Job, jobErr error) error {
	letter := DeadLetter{
		ID:         uuid.New().String(),
		Queue:      queueName,
		JobID:      job.ID,
		JobKey:     job.Key,
		Payload:    job.Payload,
		Attempts:   job.Attempts,
		Error:      jobErr.Error(),
		EnqueuedAt: job.EnqueuedAt,
		FailedAt:   time.Now(),
	}

	body, err := json.Marshal(letter)
	if err != nil {
		return err
	}

	return s.ch.Publish(
		"",           // exchange
		s.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (s *AMQPFailureSink) Close() error {
	if err := s.ch.Close(); err != nil {
		s.conn.Close()
		return err
	}
	return s.conn.Close()
}

// LogFailureSink records failures to the log only. Used when no broker is
// configured and as the queue's fallback sink.
type LogFailureSink struct {
	Logger zerolog.Logger
}

func (s *LogFailureSink) RecordFailure(ctx context.Context, queueName string, job *Job, jobErr error) error {
	s.Logger.Error().
		Str("queue", queueName).
		Str("job_id", job.ID).
		Str("job_key", job.Key).
		Int("attempts", job.Attempts).
		Err(jobErr).
		Msg("job dead-lettered")
	return nil
}
