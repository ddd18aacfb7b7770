// Package metrics defines the custom Prometheus metrics of the acquisitions
// API. It is the single source of truth for metric names, labels and help
// strings. Metrics register on the default registry at init via promauto.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/acquisitions/acquisitions-api/internal/core/ports"
)

const namespace = "acquisitions"

// ── Admission metrics ─────────────────────────────────────────────────────────

// AdmissionDecisionsTotal counts admission outcomes.
// Labels:
//   - role_class: "admin", "user" or "guest"
//   - reason: "none" (admitted), "bot", "shield", "rate_limit" or "error"
//   - mode: "live" or "dry_run"
var AdmissionDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admission_decisions_total",
		Help:      "Total number of admission decisions, by role class and reason.",
	},
	[]string{"role_class", "reason", "mode"},
)

// ClassifierDuration measures a single classifier evaluation.
// Label:
//   - outcome: "ok" or "error"
var ClassifierDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "classifier_duration_seconds",
		Help:      "Duration of admission classifier evaluations.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"outcome"},
)

// AuditDroppedTotal counts audit records discarded because the dispatcher
// queue was full or the sink failed.
// Label:
//   - cause: "queue_full" or "sink_error"
var AuditDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Total number of admission audit records dropped.",
	},
	[]string{"cause"},
)

// AuditQueueDepth tracks records waiting in each audit worker channel.
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit records pending in each worker channel.",
	},
	[]string{"worker_id"},
)

// ── Identity metrics ──────────────────────────────────────────────────────────

// AuthFailuresTotal counts rejected credentials and role checks.
// Label:
//   - reason: "no_token", "invalid_or_expired_token", "role", "invalid_credentials"
var AuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_failures_total",
		Help:      "Total number of authentication and authorization failures.",
	},
	[]string{"reason"},
)

// CredentialsIssuedTotal counts credentials handed to clients.
// Label:
//   - flow: "sign_up" or "sign_in"
var CredentialsIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credentials_issued_total",
		Help:      "Total number of session credentials issued.",
	},
	[]string{"flow"},
)

// InstrumentClassifier wraps c so every evaluation is timed.
func InstrumentClassifier(c ports.Classifier) ports.Classifier {
	if c == nil {
		return nil
	}
	return timedClassifier{next: c}
}

type timedClassifier struct {
	next ports.Classifier
}

func (t timedClassifier) Evaluate(ctx context.Context, req ports.RequestDescriptor) (ports.Verdict, error) {
	start := time.Now()
	v, err := t.next.Evaluate(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ClassifierDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return v, err
}
