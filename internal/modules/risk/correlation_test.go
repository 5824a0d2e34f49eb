package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tokyorisk/internal/domain"
)

func uniformMatrix(n int, off float64) domain.CorrelationMatrix {
	labels := make([]string, n)
	values := make([][]float64, n)
	for i := range values {
		labels[i] = string(rune('a' + i))
		values[i] = make([]float64, n)
		for j := range values[i] {
			if i == j {
				values[i][j] = 1
			} else {
				values[i][j] = off
			}
		}
	}
	return domain.CorrelationMatrix{Labels: labels, Values: values}
}

func TestCorrelationAssessor(t *testing.T) {
	a := NewCorrelationAssessor()

	t.Run("identity is low", func(t *testing.T) {
		got, err := a.Assess(uniformMatrix(4, 0))
		require.NoError(t, err)
		assert.Equal(t, 0.0, got.Score)
		assert.Equal(t, domain.RiskLow, got.Level)
	})

	t.Run("high correlation is elevated", func(t *testing.T) {
		got, err := a.Assess(uniformMatrix(4, 0.95))
		require.NoError(t, err)
		assert.True(t, got.Level.Elevated())
		assert.InDelta(t, 0.5, got.Score, 1e-12)
		assert.InDelta(t, 0.95, got.Raw["mean_abs_correlation"], 1e-12)
	})

	t.Run("negative correlation counts by magnitude", func(t *testing.T) {
		got, err := a.Assess(uniformMatrix(3, -0.4))
		require.NoError(t, err)
		assert.InDelta(t, 0.3, got.Factors["mean_correlation"], 1e-12)
		assert.InDelta(t, 0.2, got.Factors["max_correlation"], 1e-12)
		assert.InDelta(t, 0.4, got.Raw["max_abs_correlation"], 1e-12)
	})

	t.Run("empty matrix baseline", func(t *testing.T) {
		got, err := a.Assess(domain.CorrelationMatrix{})
		require.NoError(t, err)
		assert.Equal(t, 0.15, got.Score)
		assert.Equal(t, domain.RiskLow, got.Level)
	})

	t.Run("asymmetric matrix rejected", func(t *testing.T) {
		m := uniformMatrix(3, 0.5)
		m.Values[0][1] = 0.6
		_, err := a.Assess(m)
		assert.ErrorIs(t, err, domain.ErrMatrixFormat)
	})

	t.Run("ragged matrix rejected", func(t *testing.T) {
		m := uniformMatrix(3, 0.5)
		m.Values[2] = m.Values[2][:2]
		_, err := a.Assess(m)
		assert.ErrorIs(t, err, domain.ErrMatrixFormat)
	})
}
