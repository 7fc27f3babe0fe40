package obesity

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrModelUnavailable means the model artifact could not be loaded; only
	// BMI and baseline classification keep working.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrInference wraps any other failure of the model collaborator.
	ErrInference = errors.New("inference failed")
)

// PredictionIndexError records a predicted label that does not index the
// probability vector, and the argmax class used instead.
type PredictionIndexError struct {
	Label    string `json:"label"`
	Classes  int    `json:"classes"`
	Fallback int    `json:"fallback"`
}

func newPredictionIndexError(label float64, classes, fallback int) *PredictionIndexError {
	return &PredictionIndexError{
		Label:    strconv.FormatFloat(label, 'g', -1, 64),
		Classes:  classes,
		Fallback: fallback,
	}
}

func (e *PredictionIndexError) Error() string {
	return fmt.Sprintf("predicted label %s is outside [0, %d), using argmax class %d", e.Label, e.Classes, e.Fallback)
}

// FeatureLengthError is returned when a vector does not have FeatureCount columns.
type FeatureLengthError struct {
	Got int
}

func (e *FeatureLengthError) Error() string {
	return fmt.Sprintf("feature vector has %d values, expected %d", e.Got, FeatureCount)
}

func (e *FeatureLengthError) Unwrap() error {
	return ErrInference
}
