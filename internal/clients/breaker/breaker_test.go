package breaker

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestNew_TripsAfterConsecutiveFailures(t *testing.T) {
	cb := New("test", zerolog.Nop())
	failing := func() (interface{}, error) { return nil, errors.New("boom") }

	for i := 0; i < ConsecutiveFailures; i++ {
		_, err := cb.Execute(failing)
		assert.EqualError(t, err, "boom")
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestNew_SuccessResetsStreak(t *testing.T) {
	cb := New("test", zerolog.Nop())
	failing := func() (interface{}, error) { return nil, errors.New("boom") }
	ok := func() (interface{}, error) { return 1, nil }

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(failing)
		_, _ = cb.Execute(failing)
		v, err := cb.Execute(ok)
		assert.NoError(t, err)
		assert.Equal(t, 1, v)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
