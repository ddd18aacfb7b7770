package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/core/ports"
)

// DefaultClassifierTimeout bounds one classifier call when none is configured.
const DefaultClassifierTimeout = 2 * time.Second

// AdmissionEngine decides whether a request enters the pipeline. Detection
// runs first and short-circuits, so the reported reason follows the fixed
// precedence bot > shield > rate_limit and a detected request does not
// consume budget.
type AdmissionEngine struct {
	budgets    domain.Budgets
	classifier ports.Classifier
	counter    ports.WindowCounter
	timeout    time.Duration
	log        zerolog.Logger
}

// NewAdmissionEngine builds an engine. classifier may be nil, in which case
// only the rate budget applies.
func NewAdmissionEngine(
	budgets domain.Budgets,
	classifier ports.Classifier,
	counter ports.WindowCounter,
	timeout time.Duration,
	log zerolog.Logger,
) (*AdmissionEngine, error) {
	if err := budgets.Validate(); err != nil {
		return nil, err
	}
	if counter == nil {
		return nil, errors.New("admission engine: window counter is required")
	}
	if timeout <= 0 {
		timeout = DefaultClassifierTimeout
	}
	return &AdmissionEngine{
		budgets:    budgets,
		classifier: classifier,
		counter:    counter,
		timeout:    timeout,
		log:        log,
	}, nil
}

// Decide evaluates one request. A non-nil error means the engine could not
// reach a verdict and the request must be refused with a server error.
func (e *AdmissionEngine) Decide(ctx context.Context, actor *domain.Actor, req ports.RequestDescriptor) (domain.Decision, error) {
	class := domain.ClassOf(actor)

	if e.classifier != nil {
		verdict, err := e.classify(ctx, req)
		if err != nil {
			return domain.Decision{}, domain.Backend("admission classifier failed", err)
		}
		if verdict.Denied {
			switch verdict.Category {
			case domain.ReasonBot, domain.ReasonShield, domain.ReasonRateLimit:
				return domain.Deny(class, verdict.Category), nil
			default:
				return domain.Decision{}, domain.Backend("admission classifier failed",
					fmt.Errorf("denied verdict with category %q", verdict.Category))
			}
		}
	}

	budget := e.budgets.For(class)
	ok, err := e.counter.Allow(ctx, domain.CounterKey(actor, req.IP, class), budget.MaxRequests, budget.Window)
	if err != nil {
		return domain.Decision{}, domain.Backend("admission counter failed", err)
	}
	if !ok {
		return domain.Deny(class, domain.ReasonRateLimit), nil
	}
	return domain.Admit(class), nil
}

func (e *AdmissionEngine) classify(ctx context.Context, req ports.RequestDescriptor) (ports.Verdict, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	verdict, err := e.classifier.Evaluate(cctx, req)
	if err != nil {
		return ports.Verdict{}, err
	}
	// A verdict delivered after the deadline is not trusted.
	if err := cctx.Err(); err != nil {
		return ports.Verdict{}, err
	}
	return verdict, nil
}
