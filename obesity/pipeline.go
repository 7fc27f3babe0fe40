package obesity

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Hx199814/oneyearobesity/utils"
)

const (
	// NumClasses is the number of classes the model distinguishes.
	NumClasses = 2
	// probabilityTolerance is how far the probability sum may drift from 1
	// before the vector is renormalised.
	probabilityTolerance = 1e-6
)

// PredictionResult is the normalised model output for one feature vector.
type PredictionResult struct {
	ClassLabel    int                   `json:"classLabel"`
	Probabilities []float64             `json:"probabilities"`
	Fallback      *PredictionIndexError `json:"fallback,omitempty"`
}

// Probability returns the probability of the predicted class.
func (r *PredictionResult) Probability() float64 {
	return r.Probabilities[r.ClassLabel]
}

// Pipeline assembles feature vectors and runs them through the model.
// It is immutable after construction.
type Pipeline struct {
	model   PredictiveModel
	loadErr error
	logger  *slog.Logger
}

type PipelineOption func(*Pipeline)

// WithLogger replaces the default JSON logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline wraps a loaded model.
func NewPipeline(model PredictiveModel, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{model: model}
	if model == nil {
		p.loadErr = ErrModelUnavailable
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = utils.GetLogger()
	}
	return p
}

// NewUnavailablePipeline builds a pipeline whose model failed to load. Every
// prediction fails with ErrModelUnavailable wrapping cause.
func NewUnavailablePipeline(cause error, opts ...PipelineOption) *Pipeline {
	p := NewPipeline(nil, opts...)
	if cause != nil {
		p.loadErr = fmt.Errorf("%w: %w", ErrModelUnavailable, cause)
	}
	return p
}

// Available reports whether predictions can be served.
func (p *Pipeline) Available() bool {
	return p.model != nil
}

// LoadError returns why the model is unavailable, or nil.
func (p *Pipeline) LoadError() error {
	if p.model != nil {
		return nil
	}
	return p.loadErr
}

// Info describes the model state for clients.
func (p *Pipeline) Info() ModelInfo {
	info := ModelInfo{
		Available:    p.Available(),
		FeatureNames: FeatureNames[:],
	}
	if err := p.LoadError(); err != nil {
		info.Error = err.Error()
	}
	if d, ok := p.model.(ModelDescriber); ok {
		desc := d.Describe()
		info.Model = &desc
	}
	return info
}

// Predict builds the feature vector for the profile and classifies it.
func (p *Pipeline) Predict(ctx context.Context, profile StudentProfile, baselineFlag int) (*PredictionResult, error) {
	return p.PredictVector(ctx, BuildFeatureVector(profile, baselineFlag))
}

// PredictVector classifies an already assembled vector.
func (p *Pipeline) PredictVector(ctx context.Context, features FeatureVector) (*PredictionResult, error) {
	if p.model == nil {
		return nil, p.loadErr
	}

	label, err := p.model.Predict(ctx, features)
	if err != nil {
		return nil, fmt.Errorf("%w: predict: %w", ErrInference, err)
	}

	raw, err := p.model.PredictProbabilities(ctx, features)
	if err != nil {
		return nil, fmt.Errorf("%w: predict probabilities: %w", ErrInference, err)
	}

	probabilities, renormalised, err := normaliseProbabilities(raw)
	if err != nil {
		return nil, err
	}
	if renormalised {
		p.logger.WarnContext(ctx, "model probabilities did not sum to one, renormalised",
			slog.Any("raw", raw),
			slog.Any("probabilities", probabilities),
		)
	}

	class, indexErr := resolveClass(label, probabilities)
	if indexErr != nil {
		p.logger.WarnContext(ctx, "predicted label out of range, falling back to argmax",
			slog.String("label", indexErr.Label),
			slog.Int("classes", indexErr.Classes),
			slog.Int("fallback", indexErr.Fallback),
		)
	}

	return &PredictionResult{
		ClassLabel:    class,
		Probabilities: probabilities,
		Fallback:      indexErr,
	}, nil
}

// Assess validates the profile and runs the full flow: BMI, baseline flag,
// feature vector and prediction. Advice is left to the caller.
func (p *Pipeline) Assess(ctx context.Context, profile StudentProfile) (*Assessment, error) {
	started := time.Now()

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if p.model == nil {
		return nil, p.loadErr
	}

	reading, err := ReadBaseline(profile.AgeYears, profile.Sex, profile.HeightCm, profile.WeightKg)
	if err != nil {
		return nil, err
	}

	features := BuildFeatureVector(profile, reading.BaselineObese)
	result, err := p.PredictVector(ctx, features)
	if err != nil {
		return nil, err
	}

	latency := time.Since(started).Seconds() * 1000
	return NewAssessment(reading, features, result, latency), nil
}

// resolveClass rounds the label to a class index. An index outside the
// probability vector is replaced by the argmax class.
func resolveClass(label float64, probabilities []float64) (int, *PredictionIndexError) {
	rounded := math.Round(label)
	if !math.IsNaN(rounded) && rounded >= 0 && rounded < float64(len(probabilities)) {
		return int(rounded), nil
	}

	fallback := argmax(probabilities)
	return fallback, newPredictionIndexError(label, len(probabilities), fallback)
}

// argmax returns the index of the largest value; ties resolve to the lowest index.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

func normaliseProbabilities(raw []float64) ([]float64, bool, error) {
	if len(raw) != NumClasses {
		return nil, false, fmt.Errorf("%w: expected %d probabilities, got %d", ErrInference, NumClasses, len(raw))
	}

	var sum float64
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, false, fmt.Errorf("%w: invalid probability %v for class %d", ErrInference, v, i)
		}
		sum += v
	}
	if sum == 0 {
		return nil, false, fmt.Errorf("%w: probabilities sum to zero", ErrInference)
	}

	out := make([]float64, len(raw))
	copy(out, raw)
	if math.Abs(sum-1) <= probabilityTolerance {
		return out, false, nil
	}

	for i := range out {
		out[i] /= sum
	}
	return out, true, nil
}
