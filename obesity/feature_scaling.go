package obesity

// Feature scaling
//
// The columns of a FeatureVector live on very different ranges: age spans
// 6..18, survey codes 0..6, and GENDER and baseline_obesity take two values
// each. Before prototypes are compared every column is mapped as follows:
//
//   - two-valued columns are centred on the midpoint of their codes and
//     stretched to -1/+1, independent of how the prototype set is balanced;
//   - AGE and the survey codes are z-scored with prototype statistics;
//   - a column holding a single value across all prototypes is ignored.
//
// The scaled vector is then L2 normalised.

import (
	"errors"
	"math"
)

const constantColumnSpread = 1e-10

// twoValuedColumns maps a column index to its pair of codes.
var twoValuedColumns = map[int][2]float64{
	0: {float64(Male), float64(Female)},
	1: {0, 1},
}

// FeatureScaler maps a vector column by column to (v - Center) * Factor.
// A zero factor ignores the column.
type FeatureScaler struct {
	Center FeatureVector `json:"center"`
	Factor FeatureVector `json:"factor"`
}

// NewFeatureScaler fits the scaler on raw prototype vectors.
func NewFeatureScaler(vectors []FeatureVector) (*FeatureScaler, error) {
	if len(vectors) == 0 {
		return nil, errors.New("no prototypes provided")
	}

	scaler := &FeatureScaler{}
	count := float64(len(vectors))
	for col := 0; col < FeatureCount; col++ {
		lo, hi := vectors[0][col], vectors[0][col]
		var sum float64
		for _, v := range vectors {
			lo = math.Min(lo, v[col])
			hi = math.Max(hi, v[col])
			sum += v[col]
		}
		if hi-lo < constantColumnSpread {
			scaler.Center[col] = lo
			continue
		}

		if codes, ok := twoValuedColumns[col]; ok {
			scaler.Center[col] = (codes[0] + codes[1]) / 2
			scaler.Factor[col] = 2 / (codes[1] - codes[0])
			continue
		}

		mean := sum / count
		var variance float64
		for _, v := range vectors {
			diff := v[col] - mean
			variance += diff * diff
		}
		scaler.Center[col] = mean
		scaler.Factor[col] = 1 / math.Sqrt(variance/count)
	}
	return scaler, nil
}

// IgnoredColumns names the columns that do not vary across the prototypes.
func (fs *FeatureScaler) IgnoredColumns() []string {
	var names []string
	for col, factor := range fs.Factor {
		if factor == 0 {
			names = append(names, FeatureNames[col])
		}
	}
	return names
}

func (fs *FeatureScaler) Transform(v FeatureVector) FeatureVector {
	var scaled FeatureVector
	for col := range v {
		scaled[col] = (v[col] - fs.Center[col]) * fs.Factor[col]
	}
	return scaled
}

// TransformAndNormalize scales v and brings it to unit length. A vector that
// scales to zero stays zero.
func (fs *FeatureScaler) TransformAndNormalize(v FeatureVector) FeatureVector {
	scaled := fs.Transform(v)
	var sumSquares float64
	for _, x := range scaled {
		sumSquares += x * x
	}
	if sumSquares == 0 {
		return scaled
	}
	factor := 1 / math.Sqrt(sumSquares)
	for col := range scaled {
		scaled[col] *= factor
	}
	return scaled
}
