package advice

import (
	"context"
	"errors"
	"testing"

	"github.com/Hx199814/oneyearobesity/obesity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	text     string
	err      error
	model    string
	prompt   string
	system   string
	maxToken int32
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if config != nil {
		f.maxToken = config.MaxOutputTokens
		if config.SystemInstruction != nil && len(config.SystemInstruction.Parts) > 0 {
			f.system = config.SystemInstruction.Parts[0].Text
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(f.text, genai.RoleModel)}},
	}, nil
}

func highRiskAssessment() *obesity.Assessment {
	profile := obesity.StudentProfile{
		Sex:      obesity.Male,
		AgeYears: 10,
		HeightCm: 140,
		WeightKg: 44,
		Survey: obesity.SurveyResponses{
			Appetite: 2, Distress1: 1, Worthlessness: 1, HeadphoneUse: 2, Sleep: 3,
			PEFrequency: 1, FruitFrequency: 4, Crying: 1, VegetableVariety: 2,
			Fighting: 0, Distress2: 1, Punishment: 1,
		},
	}
	reading, err := obesity.ReadBaseline(profile.AgeYears, profile.Sex, profile.HeightCm, profile.WeightKg)
	if err != nil {
		panic(err)
	}
	return obesity.NewAssessment(
		reading,
		obesity.BuildFeatureVector(profile, reading.BaselineObese),
		&obesity.PredictionResult{ClassLabel: 1, Probabilities: []float64{0.3, 0.7}},
		1.5,
	)
}

func TestStaticAdvisor(t *testing.T) {
	ctx := context.Background()
	assessment := highRiskAssessment()

	text, err := StaticAdvisor{}.Advise(ctx, assessment)
	require.NoError(t, err)
	assert.Equal(t, HighRiskAdvice, text)
	assert.Contains(t, text, "60 minutes")

	assessment.Risk = obesity.RiskLow
	text, err = StaticAdvisor{}.Advise(ctx, assessment)
	require.NoError(t, err)
	assert.Equal(t, LowRiskAdvice, text)

	_, err = StaticAdvisor{}.Advise(ctx, nil)
	assert.Error(t, err)
}

func TestGeminiAdvisor(t *testing.T) {
	gen := &fakeGenerator{text: "Try to **walk to school** every day."}
	advisor := newGeminiAdvisor(gen, "")

	text, err := advisor.Advise(context.Background(), highRiskAssessment())
	require.NoError(t, err)
	assert.Equal(t, "Try to walk to school every day.", text)
	assert.Equal(t, "gemini-2.5-flash", gen.model)
	assert.Equal(t, int32(200), gen.maxToken)
	assert.Equal(t, systemPrompt, gen.system)
	assert.Contains(t, gen.prompt, "high obesity risk")
}

func TestGeminiAdvisorErrors(t *testing.T) {
	ctx := context.Background()

	_, err := newGeminiAdvisor(&fakeGenerator{err: errors.New("quota exceeded")}, "gemini-test").Advise(ctx, highRiskAssessment())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	_, err = newGeminiAdvisor(&fakeGenerator{text: "  "}, "gemini-test").Advise(ctx, highRiskAssessment())
	assert.Error(t, err)

	_, err = NewGeminiAdvisor(ctx, "", "gemini-test")
	assert.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(highRiskAssessment())

	assert.Contains(t, prompt, "obesity risk probability 70%")
	assert.Contains(t, prompt, "BMI: 22.4")
	assert.Contains(t, prompt, "above the age and sex reference: true")
	assert.Contains(t, prompt, "Student: male, 10.0 years old.")
	assert.Contains(t, prompt, "- PE classes per week: none")
	assert.Contains(t, prompt, "- Fruit eaten in the past seven days: twice a day or more")
	assert.Contains(t, prompt, "- Hit or scolded by parents in the past 30 days: yes")
	assert.Contains(t, prompt, "- Uses headphones for more than 30 minutes: yes")
}

func TestFallbackAdvisor(t *testing.T) {
	ctx := context.Background()

	failing := newGeminiAdvisor(&fakeGenerator{err: errors.New("unavailable")}, "")
	text, err := NewFallbackAdvisor(failing, StaticAdvisor{}).Advise(ctx, highRiskAssessment())
	require.NoError(t, err)
	assert.Equal(t, HighRiskAdvice, text)

	working := newGeminiAdvisor(&fakeGenerator{text: "Sleep well."}, "")
	text, err = NewFallbackAdvisor(working, StaticAdvisor{}).Advise(ctx, highRiskAssessment())
	require.NoError(t, err)
	assert.Equal(t, "Sleep well.", text)
}
