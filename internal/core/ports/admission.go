package ports

import (
	"context"
	"net/http"
	"time"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
)

// RequestDescriptor is the transport-neutral view of a request that the
// admission engine and its classifier evaluate.
type RequestDescriptor struct {
	IP        string
	UserAgent string
	Method    string
	Path      string
	RawQuery  string
	Header    http.Header
}

// Verdict is a classifier's opinion on a request.
type Verdict struct {
	Denied   bool
	Category domain.Reason
}

// Classifier detects automated clients and policy-shield violations.
// Implementations must honour ctx cancellation.
type Classifier interface {
	Evaluate(ctx context.Context, req RequestDescriptor) (Verdict, error)
}

// WindowCounter is a sliding-window request counter. Allow records one
// request for key and reports whether it fits under limit within window.
// A rejected request is not recorded. Calls for the same key are atomic.
type WindowCounter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// AdmissionEngine decides whether a request may enter the pipeline.
type AdmissionEngine interface {
	Decide(ctx context.Context, actor *domain.Actor, req RequestDescriptor) (domain.Decision, error)
}

// AuditSink receives denied admissions for review.
type AuditSink interface {
	Record(ctx context.Context, rec domain.AuditRecord) error
}
