package risk

import (
	"math"

	"github.com/aristath/tokyorisk/internal/domain"
)

// CorrelationAssessor scores cross-market correlation concentration
type CorrelationAssessor struct{}

// NewCorrelationAssessor creates a correlation assessor
func NewCorrelationAssessor() *CorrelationAssessor {
	return &CorrelationAssessor{}
}

// Assess ignores the diagonal and scores the mean and max absolute
// correlation. An empty matrix gives the 0.15 LOW baseline. A malformed
// matrix returns domain.ErrMatrixFormat.
func (a *CorrelationAssessor) Assess(m domain.CorrelationMatrix) (domain.Assessment, error) {
	if err := m.Validate(); err != nil {
		return domain.Assessment{}, err
	}
	if m.Empty() {
		return domain.Assessment{
			Score: 0.15,
			Level: domain.RiskLow,
			Factors: map[string]float64{
				"mean_correlation": 0.15,
				"max_correlation":  0.15,
			},
		}, nil
	}

	sum, maxAbs := 0.0, 0.0
	count := 0
	for i, row := range m.Values {
		for j, v := range row {
			if i == j {
				continue
			}
			abs := math.Abs(v)
			sum += abs
			maxAbs = math.Max(maxAbs, abs)
			count++
		}
	}

	mean := 0.0
	if count > 0 {
		mean = sum / float64(count)
	}

	meanScore := math.Min(mean/0.8, 0.3)
	maxScore := math.Min(maxAbs/0.9, 0.2)

	return domain.NewAssessment(
		meanScore+maxScore,
		map[string]float64{
			"mean_correlation": meanScore,
			"max_correlation":  maxScore,
		},
		map[string]float64{
			"mean_abs_correlation": mean,
			"max_abs_correlation":  maxAbs,
			"matrix_size":          float64(m.Size()),
		},
	), nil
}
