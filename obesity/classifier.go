package obesity

// Weighted k-nearest-prototype model
//
// The local model is a set of labelled reference students stored in a JSON
// artifact. Classification works as follows:
//
//  1. Every prototype vector is scaled column by column with parameters fitted
//     on the whole prototype set (see FeatureScaler) and L2 normalised.
//  2. An incoming vector goes through the same scaler and normalisation.
//  3. The cosine distance (1 - cosine similarity) to every prototype is
//     computed and the k closest are kept. Ties are broken by artifact order so
//     the ranking is reproducible.
//  4. Each neighbour votes for its class with weight 1 / (distance + 1e-9).
//     The class probability is its share of the total weight.
//
// The artifact is read once at startup. After loading the model never changes.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Hx199814/oneyearobesity/config"
	"github.com/Hx199814/oneyearobesity/utils"
)

const weightEpsilon = 1e-9

// modelArtifact is the on-disk layout of the prototype model.
type modelArtifact struct {
	FeatureNames []string    `json:"featureNames,omitempty"`
	Prototypes   []Prototype `json:"prototypes"`
}

// PrototypeModel implements PredictiveModel with a weighted k-NN vote over
// stored prototypes.
type PrototypeModel struct {
	mu            sync.RWMutex
	prototypes    []Prototype
	scaled        []FeatureVector
	classes       []int
	k             int
	usingExample  bool
	source        string
	featureScaler *FeatureScaler
}

type distancePair struct {
	index    int
	distance float64
}

// NewPrototypeModelFromFile loads the artifact at path. A missing file is an
// error.
func NewPrototypeModelFromFile(path string, k int) (*PrototypeModel, error) {
	return loadPrototypeModel(path, k, false)
}

// NewPrototypeModelFromFileOrExample behaves like NewPrototypeModelFromFile,
// except that a missing artifact is replaced by `<base>.example<ext>` next to
// it. The resulting model reports UsingExample in its stats.
func NewPrototypeModelFromFileOrExample(path string, k int) (*PrototypeModel, error) {
	return loadPrototypeModel(path, k, true)
}

func loadPrototypeModel(path string, k int, allowExample bool) (*PrototypeModel, error) {
	if k <= 0 {
		return nil, fmt.Errorf("invalid neighbour count: %d", k)
	}

	resolvedPath := filepath.Clean(path)
	usingExample := false
	data, err := os.ReadFile(resolvedPath)
	if err != nil {
		if !allowExample || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load model artifact (%s): %w", resolvedPath, err)
		}
		// "model.json" -> "model.example.json"
		ext := filepath.Ext(resolvedPath)
		fallbackPath := strings.TrimSuffix(resolvedPath, ext) + ".example" + ext
		data, err = os.ReadFile(fallbackPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load model artifact (%s): %w", resolvedPath, err)
		}
		utils.GetLogger().Warn("model artifact missing, serving the example model",
			slog.String("path", resolvedPath),
			slog.String("example", fallbackPath),
		)
		resolvedPath = fallbackPath
		usingExample = true
	}

	violations, err := validateArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse model artifact %s: %w", resolvedPath, err)
	}
	if len(violations) > 0 {
		return nil, fmt.Errorf("model artifact %s does not match schema: %s", resolvedPath, strings.Join(violations, "; "))
	}

	var artifact modelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("unable to parse model artifact %s: %w", resolvedPath, err)
	}
	if err := checkFeatureNames(artifact.FeatureNames); err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", resolvedPath, err)
	}

	model, err := NewPrototypeModel(artifact.Prototypes, k)
	if err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", resolvedPath, err)
	}
	model.source = resolvedPath
	model.usingExample = usingExample
	return model, nil
}

// NewPrototypeModel builds a model from raw (unscaled) prototypes. The slice
// is copied.
func NewPrototypeModel(prototypes []Prototype, k int) (*PrototypeModel, error) {
	if k <= 0 {
		return nil, fmt.Errorf("invalid neighbour count: %d", k)
	}
	if len(prototypes) == 0 {
		return nil, errors.New("model has no prototypes")
	}

	stored := make([]Prototype, len(prototypes))
	raw := make([]FeatureVector, len(prototypes))
	classes := make([]int, len(prototypes))
	for idx, proto := range prototypes {
		if len(proto.Features) != FeatureCount {
			return nil, fmt.Errorf("prototype %s has %d features, expected %d", proto.ID, len(proto.Features), FeatureCount)
		}
		for _, v := range proto.Features {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("prototype %s has a non-finite feature", proto.ID)
			}
		}
		class, err := parseClassLabel(proto.Label)
		if err != nil {
			return nil, fmt.Errorf("prototype %s: %w", proto.ID, err)
		}

		protoCopy := proto
		protoCopy.Features = append([]float64(nil), proto.Features...)
		if proto.Metadata != nil {
			protoCopy.Metadata = make(map[string]string, len(proto.Metadata))
			for key, value := range proto.Metadata {
				protoCopy.Metadata[key] = value
			}
		}
		stored[idx] = protoCopy
		copy(raw[idx][:], proto.Features)
		classes[idx] = class
	}

	scaler, err := NewFeatureScaler(raw)
	if err != nil {
		return nil, err
	}
	scaled := make([]FeatureVector, len(raw))
	for idx := range raw {
		scaled[idx] = scaler.TransformAndNormalize(raw[idx])
	}

	if k > len(stored) {
		k = len(stored)
	}

	return &PrototypeModel{
		prototypes:    stored,
		scaled:        scaled,
		classes:       classes,
		k:             k,
		featureScaler: scaler,
	}, nil
}

// checkFeatureNames rejects artifacts trained on a different column order.
// Artifacts without names are accepted.
func checkFeatureNames(names []string) error {
	if len(names) == 0 {
		return nil
	}
	if len(names) != FeatureCount {
		return fmt.Errorf("artifact lists %d feature names, expected %d", len(names), FeatureCount)
	}
	for i, name := range names {
		if name != FeatureNames[i] {
			return fmt.Errorf("feature %d is %q, expected %q", i, name, FeatureNames[i])
		}
	}
	return nil
}

// parseClassLabel accepts a class index ("0", "1") or a class name.
func parseClassLabel(label string) (int, error) {
	trimmed := strings.TrimSpace(label)
	if class, err := strconv.Atoi(trimmed); err == nil && class >= 0 && class < NumClasses {
		return class, nil
	}
	for class, name := range ClassLabels {
		if strings.EqualFold(trimmed, name) {
			return class, nil
		}
	}
	return 0, fmt.Errorf("unknown class label %q", label)
}

// Predict returns the class with the largest vote share as a float label.
func (c *PrototypeModel) Predict(ctx context.Context, features FeatureVector) (float64, error) {
	probabilities, err := c.PredictProbabilities(ctx, features)
	if err != nil {
		return 0, err
	}
	return float64(argmax(probabilities)), nil
}

// PredictProbabilities returns the weighted vote share of every class.
func (c *PrototypeModel) PredictProbabilities(ctx context.Context, features FeatureVector) ([]float64, error) {
	neighbors, err := c.Neighbors(ctx, features)
	if err != nil {
		return nil, err
	}

	votes := make([]float64, NumClasses)
	var totalWeight float64
	for _, n := range neighbors {
		votes[n.Class] += n.Weight
		totalWeight += n.Weight
	}
	if totalWeight == 0 {
		return nil, errors.New("neighbours carry no weight")
	}
	for i := range votes {
		votes[i] /= totalWeight
	}
	return votes, nil
}

// Neighbor is a ranked prototype match together with the class it votes for.
type Neighbor struct {
	PrototypeScore
	Class int `json:"class"`
}

// Neighbors returns the k closest prototypes, nearest first.
func (c *PrototypeModel) Neighbors(ctx context.Context, features FeatureVector) ([]Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("feature %s is not finite", FeatureNames[i])
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	query := c.featureScaler.TransformAndNormalize(features)

	distances := make([]distancePair, len(c.scaled))
	for i := range c.scaled {
		// cosine similarity in [-1, 1] becomes a distance in [0, 2]
		similarity := cosineSimilarity(query, c.scaled[i])
		distances[i] = distancePair{index: i, distance: 1 - similarity}
	}
	sort.SliceStable(distances, func(i, j int) bool {
		if distances[i].distance != distances[j].distance {
			return distances[i].distance < distances[j].distance
		}
		return distances[i].index < distances[j].index
	})

	neighbors := make([]Neighbor, 0, c.k)
	for idx := 0; idx < len(distances) && idx < c.k; idx++ {
		pair := distances[idx]
		proto := c.prototypes[pair.index]
		neighbors = append(neighbors, Neighbor{
			PrototypeScore: PrototypeScore{
				ID:       proto.ID,
				Label:    proto.Label,
				Distance: pair.distance,
				Weight:   1.0 / (pair.distance + weightEpsilon),
				Source:   proto.Source,
			},
			Class: c.classes[pair.index],
		})
	}
	return neighbors, nil
}

// Stats returns summary metadata about the loaded prototype set.
func (c *PrototypeModel) Stats() ModelStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make([]int, NumClasses)
	for _, class := range c.classes {
		counts[class]++
	}

	labels := make([]ModelLabelStat, 0, NumClasses)
	for class, count := range counts {
		if count == 0 {
			continue
		}
		labels = append(labels, ModelLabelStat{Label: ClassLabels[class], Prototypes: count})
	}

	return ModelStats{
		PrototypeCount:  len(c.prototypes),
		LabelCount:      len(labels),
		Labels:          labels,
		K:               c.k,
		UsingExample:    c.usingExample,
		IgnoredFeatures: c.featureScaler.IgnoredColumns(),
	}
}

// Describe implements ModelDescriber.
func (c *PrototypeModel) Describe() ModelDescription {
	stats := c.Stats()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return ModelDescription{
		Backend: config.BackendPrototype,
		Source:  c.source,
		Stats:   &stats,
	}
}

func cosineSimilarity(a, b FeatureVector) float64 {
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
