package obesity

import "github.com/google/uuid"

// Prototype is a single labelled reference student in the model artifact.
type Prototype struct {
	ID          string            `json:"id"`
	Label       string            `json:"label"`
	Description string            `json:"description,omitempty"`
	Source      string            `json:"source,omitempty"`
	Features    []float64         `json:"features"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// PrototypeScore captures the similarity between the analysed profile and a stored prototype.
type PrototypeScore struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
	Weight   float64 `json:"weight"`
	Source   string  `json:"source,omitempty"`
}

// ModelStats exposes metadata about the loaded prototype collection.
type ModelStats struct {
	PrototypeCount  int              `json:"prototypeCount"`
	LabelCount      int              `json:"labelCount"`
	Labels          []ModelLabelStat `json:"labels"`
	K               int              `json:"k"`
	UsingExample    bool             `json:"usingExample"`
	IgnoredFeatures []string         `json:"ignoredFeatures,omitempty"`
}

// ModelLabelStat summarises prototype density per label.
type ModelLabelStat struct {
	Label      string `json:"label"`
	Prototypes int    `json:"prototypes"`
}

// ModelInfo is what clients see about the model before submitting a profile.
type ModelInfo struct {
	Available    bool              `json:"available"`
	Error        string            `json:"error,omitempty"`
	Model        *ModelDescription `json:"model,omitempty"`
	FeatureNames []string          `json:"featureNames"`
}

// BaselineReading is the live BMI readout shown while the form is filled in.
type BaselineReading struct {
	BMI           float64 `json:"bmi"`
	BaselineObese int     `json:"baselineObese"`
	Band          *Band   `json:"band,omitempty"`
	Threshold     float64 `json:"threshold,omitempty"`
}

// ReadBaseline computes BMI, the baseline flag and the band that decided it.
func ReadBaseline(ageYears float64, sex Sex, heightCm, weightKg float64) (*BaselineReading, error) {
	bmi, err := BMI(heightCm, weightKg)
	if err != nil {
		return nil, err
	}

	reading := &BaselineReading{
		BMI:           bmi,
		BaselineObese: ClassifyBMI(ageYears, sex, bmi),
	}
	if band, ok := LookupBand(ageYears); ok {
		reading.Band = &band
		reading.Threshold = band.Threshold(sex)
	}
	return reading, nil
}

type RiskLevel string

const (
	RiskLow  RiskLevel = "low"
	RiskHigh RiskLevel = "high"
)

// ClassLabels names the model classes for display, indexed by class.
var ClassLabels = [NumClasses]string{"healthy", "obesity risk"}

// ProbabilityBar is one bar of the probability chart.
type ProbabilityBar struct {
	Class       int     `json:"class"`
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	Percent     float64 `json:"percent"`
}

// Assessment packages the prediction together with everything the
// presentation layer renders.
type Assessment struct {
	ID                 string            `json:"id"`
	BMI                float64           `json:"bmi"`
	BaselineObese      int               `json:"baselineObese"`
	Band               *Band             `json:"band,omitempty"`
	Prediction         *PredictionResult `json:"prediction"`
	Risk               RiskLevel         `json:"risk"`
	ProbabilityLabel   string            `json:"probabilityLabel"`
	ProbabilityPercent float64           `json:"probabilityPercent"`
	Distribution       []ProbabilityBar  `json:"distribution"`
	Advice             string            `json:"advice,omitempty"`
	LatencyMs          float64           `json:"latencyMs"`
	FeatureVector      []float64         `json:"featureVector"`
}

// NewAssessment derives the risk level and chart data from a prediction.
func NewAssessment(reading *BaselineReading, features FeatureVector, result *PredictionResult, latencyMs float64) *Assessment {
	a := &Assessment{
		ID:                 uuid.NewString(),
		BMI:                reading.BMI,
		BaselineObese:      reading.BaselineObese,
		Band:               reading.Band,
		Prediction:         result,
		Risk:               RiskLow,
		ProbabilityLabel:   "healthy maintenance probability",
		ProbabilityPercent: result.Probability() * 100,
		LatencyMs:          latencyMs,
		FeatureVector:      features.Slice(),
	}
	if result.ClassLabel == 1 {
		a.Risk = RiskHigh
		a.ProbabilityLabel = "obesity risk probability"
	}

	a.Distribution = make([]ProbabilityBar, 0, len(result.Probabilities))
	for class, p := range result.Probabilities {
		a.Distribution = append(a.Distribution, ProbabilityBar{
			Class:       class,
			Label:       ClassLabels[class],
			Probability: p,
			Percent:     p * 100,
		})
	}
	return a
}
