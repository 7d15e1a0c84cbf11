package risk

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/xchainarb/internal/apperrors"
)

func TestBreakerCreatesLazilyPerName(t *testing.T) {
	m := NewCircuitBreakerManager()
	a := m.Breaker(ServiceVenueA, nil)
	again := m.Breaker(ServiceVenueA, nil)
	assert.Same(t, a, again)

	b := m.Breaker(ServiceVenueB, nil)
	assert.NotSame(t, a, b)
}

func TestExecuteReturnsCircuitOpenAfterThreshold(t *testing.T) {
	m := NewCircuitBreakerManager()
	settings := Settings{
		MinRequests:     2,
		FailureRatio:    0.5,
		OpenTimeout:     time.Minute,
		HalfOpenMaxReqs: 1,
		CountInterval:   time.Minute,
	}

	failingOp := func() (interface{}, error) {
		return nil, errors.New("boom")
	}

	for i := 0; i < 2; i++ {
		_, err := m.Execute(ServiceBridge, &settings, failingOp)
		require.Error(t, err)
	}

	_, err := m.Execute(ServiceBridge, &settings, failingOp)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CategoryExternalAPI, appErr.Category)
	assert.False(t, appErr.Retryable(), "circuit-open error must never be retryable")
}

func TestExecuteSucceedsThroughClosedBreaker(t *testing.T) {
	m := NewCircuitBreakerManager()
	result, err := m.Execute(ServiceVenueA, nil, func() (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, gobreaker.StateClosed, m.State(ServiceVenueA))
}

func TestPassthroughNeverTrips(t *testing.T) {
	m := NewCircuitBreakerManager()
	cb := m.Passthrough(ServiceVenueB)
	for i := 0; i < 50; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, errors.New("boom")
		})
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestParseDurationFallsBackOnInvalid(t *testing.T) {
	assert.Equal(t, 10*time.Second, ParseDuration("", 10*time.Second))
	assert.Equal(t, 10*time.Second, ParseDuration("not-a-duration", 10*time.Second))
	assert.Equal(t, 5*time.Second, ParseDuration("5s", 10*time.Second))
}
