package sparql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedExecutor struct {
	calls int
	errs  []error
}

func (s *scriptedExecutor) Execute(ctx context.Context, query string) (*Results, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return &Results{}, nil
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	down := &HTTPError{Status: 503, Body: "down"}
	next := &scriptedExecutor{errs: []error{down, down, down, down}}
	b := NewBreakerExecutor(next, BreakerSettings{Name: "test", Timeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := b.Execute(context.Background(), "q")
		require.Error(t, err)
	}

	_, err := b.Execute(context.Background(), "q")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, next.calls, "open breaker must not reach the endpoint")
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	bad := &HTTPError{Status: 400, Body: "syntax"}
	next := &scriptedExecutor{errs: []error{bad, bad, bad, bad, bad}}
	b := NewBreakerExecutor(next, BreakerSettings{Name: "test", Timeout: time.Minute})

	for i := 0; i < 5; i++ {
		_, err := b.Execute(context.Background(), "q")
		var he *HTTPError
		require.True(t, errors.As(err, &he))
	}
	assert.Equal(t, 5, next.calls)
}

func TestBreakerPassesResults(t *testing.T) {
	b := NewBreakerExecutor(&scriptedExecutor{}, BreakerSettings{})
	res, err := b.Execute(context.Background(), "q")
	require.NoError(t, err)
	assert.NotNil(t, res)
}

func TestIsBreakerSuccess(t *testing.T) {
	assert.True(t, isBreakerSuccess(nil))
	assert.True(t, isBreakerSuccess(context.Canceled))
	assert.True(t, isBreakerSuccess(&HTTPError{Status: 404}))
	assert.False(t, isBreakerSuccess(&HTTPError{Status: 502}))
	assert.False(t, isBreakerSuccess(errors.New("connection refused")))
}
