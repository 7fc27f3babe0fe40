package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Hx199814/oneyearobesity/config"
	"github.com/Hx199814/oneyearobesity/obesity"
)

const defaultServiceURL = "http://localhost:8000"

// RemoteModel talks to the model sidecar that serves the pre-trained
// classifier artifact. It implements obesity.PredictiveModel.
type RemoteModel struct {
	serviceURL string
	client     *http.Client
}

type featuresRequest struct {
	Features [][]float64 `json:"features"`
}

// PredictResponse is the body of POST /predict.
type PredictResponse struct {
	Predictions []float64 `json:"predictions"`
}

// ProbabilitiesResponse is the body of POST /predict_proba.
type ProbabilitiesResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
}

// NewRemoteModel creates a client for the sidecar at serviceURL.
func NewRemoteModel(serviceURL string, timeout time.Duration) *RemoteModel {
	if serviceURL == "" {
		serviceURL = defaultServiceURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &RemoteModel{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// HealthCheck verifies the model service is running.
func (rm *RemoteModel) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rm.serviceURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := rm.client.Do(req)
	if err != nil {
		return fmt.Errorf("model service not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Predict returns the class label reported by the sidecar.
func (rm *RemoteModel) Predict(ctx context.Context, features obesity.FeatureVector) (float64, error) {
	var out PredictResponse
	if err := rm.post(ctx, "/predict", features, &out); err != nil {
		return 0, err
	}
	if len(out.Predictions) != 1 {
		return 0, fmt.Errorf("model service returned %d predictions for one vector", len(out.Predictions))
	}
	return out.Predictions[0], nil
}

// PredictProbabilities returns the class distribution reported by the sidecar.
func (rm *RemoteModel) PredictProbabilities(ctx context.Context, features obesity.FeatureVector) ([]float64, error) {
	var out ProbabilitiesResponse
	if err := rm.post(ctx, "/predict_proba", features, &out); err != nil {
		return nil, err
	}
	if len(out.Probabilities) != 1 {
		return nil, fmt.Errorf("model service returned %d distributions for one vector", len(out.Probabilities))
	}
	return out.Probabilities[0], nil
}

// Describe implements obesity.ModelDescriber.
func (rm *RemoteModel) Describe() obesity.ModelDescription {
	return obesity.ModelDescription{
		Backend: config.BackendRemote,
		Source:  rm.serviceURL,
	}
}

func (rm *RemoteModel) post(ctx context.Context, path string, features obesity.FeatureVector, out any) error {
	payload, err := json.Marshal(featuresRequest{Features: [][]float64{features.Slice()}})
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rm.serviceURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rm.client.Do(req)
	if err != nil {
		return fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("model service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
