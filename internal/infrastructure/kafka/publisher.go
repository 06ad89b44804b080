package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	skafka "github.com/segmentio/kafka-go"

	"github.com/jhoicas/buku-api/internal/application/einvoice"
)

// Writer subconjunto de kafka.Writer usado por el publicador (inyectable en tests).
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// EventPublisher publica los eventos de envío en un tópico. La clave del mensaje es el id
// del envío, de modo que los eventos de un mismo envío caen en la misma partición.
type EventPublisher struct {
	writer Writer
}

var _ einvoice.EventPublisher = (*EventPublisher)(nil)

// NewEventPublisher crea un publicador contra los brokers dados.
func NewEventPublisher(brokers []string, topic string) *EventPublisher {
	w := &skafka.Writer{
		Addr:         skafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &skafka.Hash{},
		RequiredAcks: skafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &EventPublisher{writer: w}
}

// NewEventPublisherWithWriter permite inyectar un writer.
func NewEventPublisherWithWriter(w Writer) *EventPublisher {
	return &EventPublisher{writer: w}
}

// Publish serializa el evento en JSON y lo escribe con el tipo en la cabecera "type".
func (p *EventPublisher) Publish(ctx context.Context, evt einvoice.SubmissionEvent) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("kafka: serializar evento: %w", err)
	}
	msg := skafka.Message{
		Key:     []byte(evt.SubmissionID),
		Value:   b,
		Time:    evt.OccurredAt,
		Headers: []skafka.Header{{Key: "type", Value: []byte(evt.Type)}},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: publicar %s: %w", evt.Type, err)
	}
	return nil
}

// Close cierra el writer.
func (p *EventPublisher) Close() error {
	return p.writer.Close()
}
