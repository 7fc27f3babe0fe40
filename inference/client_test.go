package inference

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Hx199814/oneyearobesity/config"
	"github.com/Hx199814/oneyearobesity/obesity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newSidecar fakes the model service. It answers class 1 with [0.3, 0.7]
// unless a handler overrides a route.
func newSidecar(t *testing.T, overrides map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	routes := map[string]http.HandlerFunc{
		"/health": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
		"/predict": func(w http.ResponseWriter, r *http.Request) {
			var req featuresRequest
			if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.Len(t, req.Features, 1) {
				assert.Len(t, req.Features[0], obesity.FeatureCount)
			}
			_ = json.NewEncoder(w).Encode(PredictResponse{Predictions: []float64{1}})
		},
		"/predict_proba": func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(ProbabilitiesResponse{Probabilities: [][]float64{{0.3, 0.7}}})
		},
	}
	for path, handler := range overrides {
		routes[path] = handler
	}
	for path, handler := range routes {
		mux.HandleFunc(path, handler)
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRemoteModelPredict(t *testing.T) {
	server := newSidecar(t, nil)
	model := NewRemoteModel(server.URL+"/", time.Second)
	ctx := context.Background()

	require.NoError(t, model.HealthCheck(ctx))

	label, err := model.Predict(ctx, obesity.FeatureVector{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, label)

	probabilities, err := model.PredictProbabilities(ctx, obesity.FeatureVector{})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 0.7}, probabilities)

	desc := model.Describe()
	assert.Equal(t, config.BackendRemote, desc.Backend)
	assert.Equal(t, server.URL, desc.Source)
}

func TestRemoteModelErrors(t *testing.T) {
	server := newSidecar(t, map[string]http.HandlerFunc{
		"/health": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		"/predict": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model crashed", http.StatusInternalServerError)
		},
		"/predict_proba": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"probabilities": []}`))
		},
	})
	model := NewRemoteModel(server.URL, time.Second)
	ctx := context.Background()

	err := model.HealthCheck(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")

	_, err = model.Predict(ctx, obesity.FeatureVector{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model crashed")

	_, err = model.PredictProbabilities(ctx, obesity.FeatureVector{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 distributions")
}

func TestRemoteModelHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	server := newSidecar(t, map[string]http.HandlerFunc{
		"/predict": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		},
	})
	defer close(release)

	model := NewRemoteModel(server.URL, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := model.Predict(ctx, obesity.FeatureVector{})
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestRemoteModelThroughPipeline(t *testing.T) {
	server := newSidecar(t, nil)

	pipeline, err := Load(context.Background(), config.ModelConfig{
		Backend:    config.BackendRemote,
		ServiceURL: server.URL,
		Timeout:    time.Second,
	}, discardLogger())
	require.NoError(t, err)
	require.True(t, pipeline.Available())

	result, err := pipeline.PredictVector(context.Background(), obesity.FeatureVector{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ClassLabel)
	assert.InDelta(t, 0.7, result.Probability(), 1e-12)
}

func exampleModelPath(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(filename), "..", "obesity", "model.example.json")
}

func TestLoadPrototypeBackend(t *testing.T) {
	pipeline, err := Load(context.Background(), config.ModelConfig{
		Backend: config.BackendPrototype,
		Path:    exampleModelPath(t),
		K:       5,
	}, discardLogger())
	require.NoError(t, err)

	info := pipeline.Info()
	assert.True(t, info.Available)
	require.NotNil(t, info.Model)
	assert.Equal(t, config.BackendPrototype, info.Model.Backend)
	assert.Equal(t, 16, info.Model.Stats.PrototypeCount)
}

func TestLoadFailuresYieldUnavailablePipeline(t *testing.T) {
	unhealthy := newSidecar(t, map[string]http.HandlerFunc{
		"/health": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})

	tests := []struct {
		name string
		cfg  config.ModelConfig
	}{
		{"missing artifact", config.ModelConfig{Backend: config.BackendPrototype, Path: filepath.Join(t.TempDir(), "model.json"), K: 5}},
		{"unhealthy sidecar", config.ModelConfig{Backend: config.BackendRemote, ServiceURL: unhealthy.URL, Timeout: time.Second}},
		{"unknown backend", config.ModelConfig{Backend: "onnx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline, err := Load(context.Background(), tt.cfg, discardLogger())
			require.Error(t, err)
			require.NotNil(t, pipeline)
			assert.False(t, pipeline.Available())
			assert.ErrorIs(t, pipeline.LoadError(), obesity.ErrModelUnavailable)

			_, err = pipeline.PredictVector(context.Background(), obesity.FeatureVector{})
			assert.ErrorIs(t, err, obesity.ErrModelUnavailable)
		})
	}
}

func TestLoadMissingArtifactIgnoresExampleByDefault(t *testing.T) {
	example, err := os.ReadFile(exampleModelPath(t))
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.example.json"), example, 0o644))

	cfg := config.ModelConfig{
		Backend: config.BackendPrototype,
		Path:    filepath.Join(dir, "model.json"),
		K:       5,
	}

	pipeline, err := Load(context.Background(), cfg, discardLogger())
	require.Error(t, err)
	assert.False(t, pipeline.Available())
	info := pipeline.Info()
	assert.Nil(t, info.Model)
	assert.Contains(t, info.Error, "model.json")

	_, err = pipeline.PredictVector(context.Background(), obesity.FeatureVector{})
	assert.ErrorIs(t, err, obesity.ErrModelUnavailable)

	cfg.AllowExample = true
	pipeline, err = Load(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	require.True(t, pipeline.Available())
	info = pipeline.Info()
	require.NotNil(t, info.Model)
	assert.True(t, info.Model.Stats.UsingExample)
}
