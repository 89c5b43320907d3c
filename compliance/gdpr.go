package compliance

import (
	"fmt"
	"math"
	"sort"
)

// PredictionExplanation is a right-to-explanation response: the score plus
// the top contributing factors in human readable form.
type PredictionExplanation struct {
	Prediction             float64  `json:"prediction"`
	FactorsIncreasingScore []string `json:"factors_increasing_score"`
	FactorsDecreasingScore []string `json:"factors_decreasing_score"`
}

// ExplainableModel wraps a linear scoring model so every prediction can be
// explained through per-feature weight times value attribution, supporting
// the GDPR right to explanation for automated decisions.
type ExplainableModel struct {
	featureNames []string
	weights      []float64
	bias         float64
}

// NewExplainableModel creates an explainable linear model. The weights slice
// must match featureNames in length and order.
func NewExplainableModel(featureNames []string, weights []float64, bias float64) (*ExplainableModel, error) {
	if len(featureNames) == 0 {
		return nil, fmt.Errorf("model requires at least one feature")
	}
	if len(featureNames) != len(weights) {
		return nil, fmt.Errorf("feature count %d does not match weight count %d", len(featureNames), len(weights))
	}
	return &ExplainableModel{
		featureNames: append([]string(nil), featureNames...),
		weights:      append([]float64(nil), weights...),
		bias:         bias,
	}, nil
}

// Predict returns the sigmoid score for the input features, in feature
// order.
func (m *ExplainableModel) Predict(features []float64) (float64, error) {
	if len(features) != len(m.weights) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.weights), len(features))
	}
	z := m.bias
	for i, w := range m.weights {
		z += w * features[i]
	}
	return sigmoid(z), nil
}

// ExplainPrediction scores the input and reports the five features with the
// largest absolute contribution, split into factors that increased and
// decreased the score.
func (m *ExplainableModel) ExplainPrediction(features []float64) (*PredictionExplanation, error) {
	prediction, err := m.Predict(features)
	if err != nil {
		return nil, err
	}

	type impact struct {
		feature string
		value   float64
	}
	impacts := make([]impact, len(m.weights))
	for i, w := range m.weights {
		impacts[i] = impact{feature: m.featureNames[i], value: w * features[i]}
	}
	sort.SliceStable(impacts, func(i, j int) bool {
		return math.Abs(impacts[i].value) > math.Abs(impacts[j].value)
	})

	explanation := &PredictionExplanation{Prediction: prediction}
	top := impacts
	if len(top) > 5 {
		top = top[:5]
	}
	for _, imp := range top {
		if imp.value > 0 {
			explanation.FactorsIncreasingScore = append(explanation.FactorsIncreasingScore,
				fmt.Sprintf("%s: Increased score by %.2f points", imp.feature, imp.value))
		} else {
			explanation.FactorsDecreasingScore = append(explanation.FactorsDecreasingScore,
				fmt.Sprintf("%s: Decreased score by %.2f points", imp.feature, math.Abs(imp.value)))
		}
	}
	return explanation, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
