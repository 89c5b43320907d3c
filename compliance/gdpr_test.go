package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExplainableModel_Validation(t *testing.T) {
	_, err := NewExplainableModel(nil, nil, 0)
	assert.Error(t, err)

	_, err = NewExplainableModel([]string{"income"}, []float64{0.5, 0.2}, 0)
	assert.Error(t, err)
}

func TestExplainableModel_Predict(t *testing.T) {
	m, err := NewExplainableModel([]string{"income", "debt"}, []float64{1.0, -1.0}, 0)
	require.NoError(t, err)

	score, err := m.Predict([]float64{0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, score, 1e-9)

	high, err := m.Predict([]float64{3, 0})
	require.NoError(t, err)
	assert.Greater(t, high, 0.9)

	_, err = m.Predict([]float64{1})
	assert.Error(t, err)
}

func TestExplainableModel_ExplainPrediction(t *testing.T) {
	features := []string{"income", "debt", "age", "tenure", "inquiries", "utilization"}
	weights := []float64{0.8, -1.2, 0.1, 0.3, -0.5, -0.05}
	m, err := NewExplainableModel(features, weights, 0)
	require.NoError(t, err)

	explanation, err := m.ExplainPrediction([]float64{2.0, 1.5, 1.0, 1.0, 1.0, 1.0})
	require.NoError(t, err)

	// only the five largest contributions are reported; utilization (-0.05)
	// falls outside the top five
	assert.Len(t, explanation.FactorsIncreasingScore, 3)
	assert.Len(t, explanation.FactorsDecreasingScore, 2)

	// debt carries the largest absolute impact (-1.8)
	assert.Contains(t, explanation.FactorsDecreasingScore[0], "debt")
	assert.Contains(t, explanation.FactorsDecreasingScore[0], "1.80")
	assert.Contains(t, explanation.FactorsIncreasingScore[0], "income")
}
