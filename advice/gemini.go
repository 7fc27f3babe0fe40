package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Hx199814/oneyearobesity/obesity"
	"google.golang.org/genai"
)

const systemPrompt = `You are a school health assistant. You receive the result of a one-year
obesity risk screening for a student together with the student's survey answers.
Write two or three short, encouraging sentences of practical advice about
physical activity, diet and sleep that fit the answers. Do not repeat the numbers,
do not diagnose, and do not mention that a model was used.`

// contentGenerator is the part of genai.Models the advisor needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAdvisor writes personalised advice with a Gemini model.
type GeminiAdvisor struct {
	models contentGenerator
	model  string
}

// NewGeminiAdvisor creates a Gemini API client for the given model.
func NewGeminiAdvisor(ctx context.Context, apiKey, model string) (*GeminiAdvisor, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newGeminiAdvisor(client.Models, model), nil
}

func newGeminiAdvisor(models contentGenerator, model string) *GeminiAdvisor {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiAdvisor{models: models, model: model}
}

func (g *GeminiAdvisor) Advise(ctx context.Context, assessment *obesity.Assessment) (string, error) {
	if assessment == nil {
		return "", errors.New("no assessment to advise on")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleModel),
		Temperature:       genai.Ptr(float32(0.4)),
		TopP:              genai.Ptr(float32(0.8)),
		MaxOutputTokens:   int32(200),
	}

	resp, err := g.models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{genai.NewContentFromText(BuildPrompt(assessment), genai.RoleUser)},
		config,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate advice: %w", err)
	}
	if resp == nil {
		return "", errors.New("model returned no response")
	}

	text := strings.TrimSpace(strings.ReplaceAll(resp.Text(), "*", ""))
	if text == "" {
		return "", errors.New("model returned empty advice")
	}
	return text, nil
}

// BuildPrompt describes the assessment and the survey answers in plain text.
func BuildPrompt(assessment *obesity.Assessment) string {
	var b strings.Builder

	risk := "low"
	if assessment.Risk == obesity.RiskHigh {
		risk = "high"
	}
	fmt.Fprintf(&b, "Screening result: %s obesity risk (%s %.0f%%).\n", risk, assessment.ProbabilityLabel, assessment.ProbabilityPercent)
	fmt.Fprintf(&b, "BMI: %.1f, currently above the age and sex reference: %t.\n", assessment.BMI, assessment.BaselineObese == 1)

	vec, err := obesity.FeatureVectorFromSlice(assessment.FeatureVector)
	if err != nil {
		return b.String()
	}

	named := vec.Named()
	sex := obesity.Sex(named["GENDER"])
	fmt.Fprintf(&b, "Student: %s, %.1f years old.\n", sex, named["AGE"])
	b.WriteString("Survey answers:\n")
	for _, q := range obesity.Questions {
		value, ok := named[q.Item]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", q.Prompt, optionLabel(q, int(value)))
	}
	return b.String()
}

func optionLabel(q obesity.Question, code int) string {
	for _, opt := range q.Options {
		if opt.Code == code {
			return opt.Label
		}
	}
	return fmt.Sprintf("code %d", code)
}
