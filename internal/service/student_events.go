package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/noah-isme/students-api/internal/dto"
)

// Student change event types.
const (
	StudentEventCreated = "created"
	StudentEventUpdated = "updated"
	StudentEventDeleted = "deleted"
)

// StudentEvent is published after a successful write.
type StudentEvent struct {
	ID            string               `json:"id"`
	Type          string               `json:"type"`
	StudentID     uint                 `json:"student_id"`
	Student       *dto.StudentResponse `json:"student,omitempty"`
	CorrelationID string               `json:"correlation_id,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// StudentEventPublisher delivers change events to interested consumers.
type StudentEventPublisher interface {
	Publish(ctx context.Context, event StudentEvent) error
}

type natsStudentPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSStudentPublisher publishes events on "<subject>.<type>".
func NewNATSStudentPublisher(conn *nats.Conn, subject string) StudentEventPublisher {
	return &natsStudentPublisher{conn: conn, subject: subject}
}

func (p *natsStudentPublisher) Publish(_ context.Context, event StudentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.conn.Publish(p.subject+"."+event.Type, payload)
}

func newStudentEvent(eventType string, id uint, student *dto.StudentResponse, correlationID string, now time.Time) StudentEvent {
	return StudentEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		StudentID:     id,
		Student:       student,
		CorrelationID: correlationID,
		OccurredAt:    now.UTC(),
	}
}
