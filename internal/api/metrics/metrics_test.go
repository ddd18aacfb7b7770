package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/core/ports"
)

type stubClassifier struct{ err error }

func (s stubClassifier) Evaluate(context.Context, ports.RequestDescriptor) (ports.Verdict, error) {
	return ports.Verdict{Category: domain.ReasonNone}, s.err
}

func TestInstrumentClassifier_ObservesOutcome(t *testing.T) {
	_, err := InstrumentClassifier(stubClassifier{}).Evaluate(context.Background(), ports.RequestDescriptor{})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = InstrumentClassifier(stubClassifier{err: boom}).Evaluate(context.Background(), ports.RequestDescriptor{})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 2, testutil.CollectAndCount(ClassifierDuration))
}

func TestInstrumentClassifier_Nil(t *testing.T) {
	assert.Nil(t, InstrumentClassifier(nil))
}
