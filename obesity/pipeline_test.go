package obesity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/Hx199814/oneyearobesity/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMockPipeline(t *testing.T) (*Pipeline, *MockPredictiveModel) {
	t.Helper()
	ctrl := gomock.NewController(t)
	model := NewMockPredictiveModel(ctrl)
	return NewPipeline(model, WithLogger(discardLogger())), model
}

func expectOutput(model *MockPredictiveModel, label float64, probabilities []float64) {
	model.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(label, nil)
	model.EXPECT().PredictProbabilities(gomock.Any(), gomock.Any()).Return(probabilities, nil)
}

func TestPipelineFloatLabelReportsPredictedClassProbability(t *testing.T) {
	pipeline, model := newMockPipeline(t)
	expectOutput(model, 1.0, []float64{0.3, 0.7})

	result, err := pipeline.Predict(context.Background(), validProfile(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ClassLabel)
	assert.Nil(t, result.Fallback)
	assert.InDelta(t, 0.7, result.Probability(), 1e-12)
}

func TestPipelinePassesCanonicalVector(t *testing.T) {
	pipeline, model := newMockPipeline(t)
	profile := validProfile()
	want := BuildFeatureVector(profile, 1)

	model.EXPECT().Predict(gomock.Any(), want).Return(0.0, nil)
	model.EXPECT().PredictProbabilities(gomock.Any(), want).Return([]float64{0.9, 0.1}, nil)

	result, err := pipeline.Predict(context.Background(), profile, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ClassLabel)
}

func TestPipelineLabelRounding(t *testing.T) {
	tests := []struct {
		label float64
		want  int
	}{
		{0, 0},
		{0.4, 0},
		{0.5, 1},
		{0.99999, 1},
		{1.49, 1},
		{-0.4, 0},
	}

	for _, tt := range tests {
		pipeline, model := newMockPipeline(t)
		expectOutput(model, tt.label, []float64{0.5, 0.5})

		result, err := pipeline.PredictVector(context.Background(), FeatureVector{})
		require.NoError(t, err)
		assert.Equal(t, tt.want, result.ClassLabel, "label %v", tt.label)
		assert.Nil(t, result.Fallback, "label %v", tt.label)
	}
}

func TestPipelineOutOfRangeLabelFallsBackToArgmax(t *testing.T) {
	tests := []struct {
		name          string
		label         float64
		probabilities []float64
		want          int
	}{
		{"label two", 2, []float64{0.2, 0.8}, 1},
		{"negative label", -1, []float64{0.65, 0.35}, 0},
		{"large label", 17, []float64{0.1, 0.9}, 1},
		{"NaN label", math.NaN(), []float64{0.4, 0.6}, 1},
		{"infinite label", math.Inf(1), []float64{0.7, 0.3}, 0},
		{"tie resolves to lowest index", 3, []float64{0.5, 0.5}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline, model := newMockPipeline(t)
			expectOutput(model, tt.label, tt.probabilities)

			result, err := pipeline.PredictVector(context.Background(), FeatureVector{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.ClassLabel)
			require.NotNil(t, result.Fallback)
			assert.Equal(t, tt.want, result.Fallback.Fallback)
			assert.Equal(t, NumClasses, result.Fallback.Classes)
			assert.Contains(t, result.Fallback.Error(), "using argmax class")
		})
	}
}

func TestPipelineRenormalisesProbabilities(t *testing.T) {
	pipeline, model := newMockPipeline(t)
	expectOutput(model, 0, []float64{0.6, 0.6})

	result, err := pipeline.PredictVector(context.Background(), FeatureVector{})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, result.Probabilities, 1e-12)
}

func TestPipelineKeepsProbabilitiesWithinTolerance(t *testing.T) {
	pipeline, model := newMockPipeline(t)
	raw := []float64{0.2500001, 0.75}
	expectOutput(model, 1, raw)

	result, err := pipeline.PredictVector(context.Background(), FeatureVector{})
	require.NoError(t, err)
	assert.Equal(t, raw, result.Probabilities)
}

func TestPipelineProbabilitiesSumToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		raw := []float64{rng.Float64() * 3, rng.Float64() * 3}
		if raw[0]+raw[1] == 0 {
			continue
		}

		pipeline, model := newMockPipeline(t)
		expectOutput(model, float64(rng.Intn(2)), raw)

		result, err := pipeline.PredictVector(context.Background(), FeatureVector{})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, result.Probabilities[0]+result.Probabilities[1], probabilityTolerance)
		for _, p := range result.Probabilities {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
		}
	}
}

func TestPipelineRejectsMalformedProbabilities(t *testing.T) {
	tests := []struct {
		name          string
		probabilities []float64
	}{
		{"single value", []float64{1}},
		{"three values", []float64{0.2, 0.3, 0.5}},
		{"negative value", []float64{-0.1, 1.1}},
		{"NaN value", []float64{math.NaN(), 1}},
		{"infinite value", []float64{math.Inf(1), 0}},
		{"zero sum", []float64{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline, model := newMockPipeline(t)
			expectOutput(model, 0, tt.probabilities)

			_, err := pipeline.PredictVector(context.Background(), FeatureVector{})
			assert.ErrorIs(t, err, ErrInference)
		})
	}
}

func TestPipelineWrapsModelFailures(t *testing.T) {
	boom := errors.New("runtime crashed")

	t.Run("predict", func(t *testing.T) {
		pipeline, model := newMockPipeline(t)
		model.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(0.0, boom)

		_, err := pipeline.PredictVector(context.Background(), FeatureVector{})
		assert.ErrorIs(t, err, ErrInference)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("probabilities", func(t *testing.T) {
		pipeline, model := newMockPipeline(t)
		model.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(1.0, nil)
		model.EXPECT().PredictProbabilities(gomock.Any(), gomock.Any()).Return(nil, boom)

		_, err := pipeline.PredictVector(context.Background(), FeatureVector{})
		assert.ErrorIs(t, err, ErrInference)
		assert.ErrorIs(t, err, boom)
	})
}

func TestUnavailablePipeline(t *testing.T) {
	cause := errors.New("open obesity/model.json: no such file or directory")
	pipeline := NewUnavailablePipeline(cause, WithLogger(discardLogger()))

	assert.False(t, pipeline.Available())
	assert.ErrorIs(t, pipeline.LoadError(), ErrModelUnavailable)
	assert.ErrorIs(t, pipeline.LoadError(), cause)

	_, err := pipeline.Predict(context.Background(), validProfile(), 0)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	_, err = pipeline.Assess(context.Background(), validProfile())
	assert.ErrorIs(t, err, ErrModelUnavailable)

	// validation still runs first so form errors are reported as such
	invalid := validProfile()
	invalid.HeightCm = 0
	_, err = pipeline.Assess(context.Background(), invalid)
	assert.ErrorIs(t, err, ErrInvalidMeasurement)

	info := pipeline.Info()
	assert.False(t, info.Available)
	assert.Contains(t, info.Error, "model unavailable")
	assert.Nil(t, info.Model)
	assert.Len(t, info.FeatureNames, FeatureCount)

	// baseline classification does not depend on the model
	flag, err := validProfile().ClassifyBaseline()
	require.NoError(t, err)
	assert.Equal(t, 0, flag)
}

func TestNilModelIsUnavailable(t *testing.T) {
	pipeline := NewPipeline(nil, WithLogger(discardLogger()))
	_, err := pipeline.PredictVector(context.Background(), FeatureVector{})
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestPipelineAssess(t *testing.T) {
	pipeline, model := newMockPipeline(t)
	profile := validProfile()
	profile.Sex = Male
	profile.AgeYears = 10
	profile.HeightCm = 140
	profile.WeightKg = 44

	want := BuildFeatureVector(profile, 1)
	model.EXPECT().Predict(gomock.Any(), want).Return(1.0, nil)
	model.EXPECT().PredictProbabilities(gomock.Any(), want).Return([]float64{0.3, 0.7}, nil)

	assessment, err := pipeline.Assess(context.Background(), profile)
	require.NoError(t, err)

	assert.NotEmpty(t, assessment.ID)
	assert.Equal(t, 1, assessment.BaselineObese)
	assert.InDelta(t, 22.45, assessment.BMI, 0.005)
	require.NotNil(t, assessment.Band)
	assert.Equal(t, 10.0, assessment.Band.StartAge)
	assert.Equal(t, RiskHigh, assessment.Risk)
	assert.Equal(t, "obesity risk probability", assessment.ProbabilityLabel)
	assert.InDelta(t, 70.0, assessment.ProbabilityPercent, 1e-9)
	assert.Equal(t, want.Slice(), assessment.FeatureVector)
	require.Len(t, assessment.Distribution, NumClasses)
	assert.Equal(t, "healthy", assessment.Distribution[0].Label)
	assert.InDelta(t, 30.0, assessment.Distribution[0].Percent, 1e-9)
	assert.GreaterOrEqual(t, assessment.LatencyMs, 0.0)
}

func TestPipelineAssessLowRisk(t *testing.T) {
	pipeline, model := newMockPipeline(t)
	expectOutput(model, 0, []float64{0.82, 0.18})

	assessment, err := pipeline.Assess(context.Background(), validProfile())
	require.NoError(t, err)
	assert.Equal(t, RiskLow, assessment.Risk)
	assert.Equal(t, "healthy maintenance probability", assessment.ProbabilityLabel)
	assert.InDelta(t, 82.0, assessment.ProbabilityPercent, 1e-9)
}

type describedModel struct {
	*MockPredictiveModel
	*MockModelDescriber
}

func TestPipelineInfoDescribesModel(t *testing.T) {
	ctrl := gomock.NewController(t)
	describer := NewMockModelDescriber(ctrl)
	describer.EXPECT().Describe().Return(ModelDescription{Backend: config.BackendRemote, Source: "http://model:8000"})

	pipeline := NewPipeline(describedModel{NewMockPredictiveModel(ctrl), describer}, WithLogger(discardLogger()))

	info := pipeline.Info()
	assert.True(t, info.Available)
	assert.Empty(t, info.Error)
	require.NotNil(t, info.Model)
	assert.Equal(t, config.BackendRemote, info.Model.Backend)
	assert.Equal(t, "http://model:8000", info.Model.Source)
	assert.Equal(t, FeatureNames[:], info.FeatureNames)
}
