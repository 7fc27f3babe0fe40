package obesity

// FeatureCount is the length of every vector submitted to the model.
const FeatureCount = 15

// FeatureNames lists the vector columns in the order the model was trained on.
var FeatureNames = [FeatureCount]string{
	"GENDER",
	"baseline_obesity",
	"D2",
	"AGE",
	"D1",
	"D9",
	"HU",
	"D11",
	"PEC",
	"FrFF",
	"D17",
	"DVT",
	"FF",
	"D3",
	"PPP",
}

// FeatureVector is the fixed-order model input. Reordering its columns
// silently corrupts predictions.
type FeatureVector [FeatureCount]float64

// Slice returns a copy of the vector as a slice.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, v[:])
	return out
}

// Named pairs every value with its column name.
func (v FeatureVector) Named() map[string]float64 {
	named := make(map[string]float64, FeatureCount)
	for i, name := range FeatureNames {
		named[name] = v[i]
	}
	return named
}

// FeatureVectorFromSlice converts a slice back into a vector, failing when the
// length is not FeatureCount.
func FeatureVectorFromSlice(values []float64) (FeatureVector, error) {
	var v FeatureVector
	if len(values) != FeatureCount {
		return v, &FeatureLengthError{Got: len(values)}
	}
	copy(v[:], values)
	return v, nil
}

// BuildFeatureVector assembles the model input for a profile and its baseline flag.
func BuildFeatureVector(p StudentProfile, baselineFlag int) FeatureVector {
	s := p.Survey
	return FeatureVector{
		float64(p.Sex),
		float64(baselineFlag),
		float64(s.Appetite),
		p.AgeYears,
		float64(s.Distress1),
		float64(s.Worthlessness),
		float64(s.HeadphoneUse),
		float64(s.Sleep),
		float64(s.PEFrequency),
		float64(s.FruitFrequency),
		float64(s.Crying),
		float64(s.VegetableVariety),
		float64(s.Fighting),
		float64(s.Distress2),
		float64(s.Punishment),
	}
}
