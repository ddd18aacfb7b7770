// Package natsbus publishes admission audit records to a NATS subject for
// consumers outside this service.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
)

// publisher is the subset of *nats.Conn the sink needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// AuditPublisher implements ports.AuditSink over core NATS.
type AuditPublisher struct {
	conn    publisher
	subject string
}

func NewAuditPublisher(conn *nats.Conn, subject string) *AuditPublisher {
	return &AuditPublisher{conn: conn, subject: subject}
}

// Connect dials url with reconnect settings suited to a long-lived sink.
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return conn, nil
}

// Record publishes rec as JSON. Core NATS publish does not block on the
// network, so ctx is only checked up front.
func (p *AuditPublisher) Record(ctx context.Context, rec domain.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish audit record: %w", err)
	}
	return nil
}
