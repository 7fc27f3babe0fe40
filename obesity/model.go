package obesity

import "context"

//go:generate mockgen -source=model.go -destination=mock_model_test.go -package=obesity

// PredictiveModel is the pre-trained classifier. Implementations must be safe
// for concurrent use and must not change after loading.
type PredictiveModel interface {
	// Predict returns the predicted class label. Some model runtimes report
	// labels as floats, so the value is normalised by the pipeline.
	Predict(ctx context.Context, features FeatureVector) (float64, error)
	// PredictProbabilities returns one probability per class, indexed by class.
	PredictProbabilities(ctx context.Context, features FeatureVector) ([]float64, error)
}

// ModelDescriber is implemented by models that can report what they are.
type ModelDescriber interface {
	Describe() ModelDescription
}

// ModelDescription summarises a loaded model for the model info endpoint.
type ModelDescription struct {
	Backend string      `json:"backend"`
	Source  string      `json:"source,omitempty"`
	Stats   *ModelStats `json:"stats,omitempty"`
}
