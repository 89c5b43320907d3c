package compliance

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/agentlab-dev/agentlab/logging"
)

// DPTrainerOptions configures the differentially private trainer.
type DPTrainerOptions struct {
	// Epsilon is the privacy budget. Lower values mean stronger privacy and
	// noisier gradients (default 1.0).
	Epsilon float64
	// Delta is the probability of the privacy guarantee failing
	// (default 1e-5).
	Delta float64
	// LearningRate for gradient descent (default 0.01).
	LearningRate float64
	// ClipNorm bounds the per-batch gradient L2 norm (default 1.0).
	ClipNorm float64
	// Seed makes training deterministic when non-zero, used in tests.
	Seed int64
	// Logger receives training diagnostics.
	Logger logging.Logger
}

// DPTrainer trains a logistic regression classifier with differentially
// private SGD: gradients are clipped to bound sensitivity, then perturbed
// with Gaussian noise calibrated to the privacy budget before each update.
type DPTrainer struct {
	epsilon      float64
	delta        float64
	learningRate float64
	clipNorm     float64
	rng          *rand.Rand
	logger       logging.Logger

	weights   []float64
	intercept float64
	trained   bool
}

// NewDPTrainer creates a trainer with the given privacy parameters.
func NewDPTrainer(optFns ...func(o *DPTrainerOptions)) *DPTrainer {
	opts := DPTrainerOptions{
		Epsilon:      1.0,
		Delta:        1e-5,
		LearningRate: 0.01,
		ClipNorm:     1.0,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	var rng *rand.Rand
	if opts.Seed != 0 {
		rng = rand.New(rand.NewSource(opts.Seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	return &DPTrainer{
		epsilon:      opts.Epsilon,
		delta:        opts.Delta,
		learningRate: opts.LearningRate,
		clipNorm:     opts.ClipNorm,
		rng:          rng,
		logger:       opts.Logger,
	}
}

// NoiseScale returns the Gaussian noise standard deviation calibrated to
// the privacy parameters for unit L2 sensitivity.
func (t *DPTrainer) NoiseScale() float64 {
	sensitivity := t.clipNorm
	return sensitivity * math.Sqrt(2*math.Log(1.25/t.delta)) / t.epsilon
}

// Train fits the model with DP-SGD over the labeled samples. Labels must be
// 0 or 1. Each epoch shuffles the data and iterates minibatches of
// batchSize.
func (t *DPTrainer) Train(samples [][]float64, labels []float64, batchSize, epochs int) error {
	if len(samples) == 0 {
		return fmt.Errorf("training requires at least one sample")
	}
	if len(samples) != len(labels) {
		return fmt.Errorf("sample count %d does not match label count %d", len(samples), len(labels))
	}
	if batchSize <= 0 {
		batchSize = 64
	}
	if epochs <= 0 {
		epochs = 10
	}

	numFeatures := len(samples[0])
	for i, sample := range samples {
		if len(sample) != numFeatures {
			return fmt.Errorf("sample %d has %d features, expected %d", i, len(sample), numFeatures)
		}
	}

	t.weights = make([]float64, numFeatures)
	t.intercept = 0

	indices := make([]int, len(samples))
	for i := range indices {
		indices[i] = i
	}

	noiseScale := t.NoiseScale()
	for epoch := 0; epoch < epochs; epoch++ {
		t.rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		for start := 0; start < len(indices); start += batchSize {
			end := start + batchSize
			if end > len(indices) {
				end = len(indices)
			}
			batch := indices[start:end]

			gradients := t.computeGradients(samples, labels, batch)
			clipGradients(gradients, t.clipNorm)
			for i := range gradients {
				gradients[i] += t.rng.NormFloat64() * noiseScale
			}
			t.applyUpdate(gradients)
		}
	}

	t.trained = true
	t.logger.Info("dp.training.complete", "samples", len(samples), "epochs", epochs, "epsilon", t.epsilon, "noise_scale", noiseScale)
	return nil
}

// PredictProba returns the probability of the positive class for each
// sample.
func (t *DPTrainer) PredictProba(samples [][]float64) ([]float64, error) {
	if !t.trained {
		return nil, fmt.Errorf("model not trained yet")
	}

	probs := make([]float64, len(samples))
	for i, sample := range samples {
		if len(sample) != len(t.weights) {
			return nil, fmt.Errorf("sample %d has %d features, expected %d", i, len(sample), len(t.weights))
		}
		z := t.intercept
		for j, w := range t.weights {
			z += w * sample[j]
		}
		probs[i] = sigmoid(z)
	}
	return probs, nil
}

// Predict returns the class label (0 or 1) for each sample.
func (t *DPTrainer) Predict(samples [][]float64) ([]int, error) {
	probs, err := t.PredictProba(samples)
	if err != nil {
		return nil, err
	}

	labels := make([]int, len(probs))
	for i, p := range probs {
		if p > 0.5 {
			labels[i] = 1
		}
	}
	return labels, nil
}

// computeGradients returns the averaged logistic loss gradient for the
// batch, with the intercept gradient in the final slot.
func (t *DPTrainer) computeGradients(samples [][]float64, labels []float64, batch []int) []float64 {
	gradients := make([]float64, len(t.weights)+1)
	for _, idx := range batch {
		z := t.intercept
		for j, w := range t.weights {
			z += w * samples[idx][j]
		}
		residual := sigmoid(z) - labels[idx]
		for j := range t.weights {
			gradients[j] += residual * samples[idx][j]
		}
		gradients[len(t.weights)] += residual
	}
	for i := range gradients {
		gradients[i] /= float64(len(batch))
	}
	return gradients
}

func (t *DPTrainer) applyUpdate(gradients []float64) {
	for i := range t.weights {
		t.weights[i] -= t.learningRate * gradients[i]
	}
	t.intercept -= t.learningRate * gradients[len(t.weights)]
}

func clipGradients(gradients []float64, clipNorm float64) {
	var norm float64
	for _, g := range gradients {
		norm += g * g
	}
	norm = math.Sqrt(norm)
	if norm > clipNorm {
		scale := clipNorm / norm
		for i := range gradients {
			gradients[i] *= scale
		}
	}
}
