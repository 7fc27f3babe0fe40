package obesity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSex is returned for a sex that is neither male nor female.
	ErrInvalidSex = errors.New("invalid sex")
	// ErrInvalidSurveyResponse is returned for a survey code outside its option set.
	ErrInvalidSurveyResponse = errors.New("invalid survey response")
)

// Sex is encoded the way the survey form records it: 1 for boys, 2 for girls.
type Sex int

const (
	Male   Sex = 1
	Female Sex = 2
)

func (s Sex) Valid() bool {
	return s == Male || s == Female
}

func (s Sex) String() string {
	switch s {
	case Male:
		return "male"
	case Female:
		return "female"
	default:
		return fmt.Sprintf("Sex(%d)", int(s))
	}
}

// ParseSex accepts "male"/"female" (and the short forms "m"/"f") or the codes "1"/"2".
func ParseSex(value string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "male", "m", "boy", "1":
		return Male, nil
	case "female", "f", "girl", "2":
		return Female, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSex, value)
	}
}

func (s Sex) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSex, int(s))
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts either the name or the numeric form code.
func (s *Sex) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		parsed := Sex(code)
		if !parsed.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidSex, code)
		}
		*s = parsed
		return nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSex, string(data))
	}
	parsed, err := ParseSex(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SurveyResponses holds the coded answers of the questionnaire. The comments
// give the questionnaire item each field comes from.
type SurveyResponses struct {
	Appetite         int `json:"appetite"`         // D2
	Distress1        int `json:"distress1"`        // D1
	Worthlessness    int `json:"worthlessness"`    // D9
	HeadphoneUse     int `json:"headphoneUse"`     // HU
	Sleep            int `json:"sleep"`            // D11
	PEFrequency      int `json:"peFrequency"`      // PEC
	FruitFrequency   int `json:"fruitFrequency"`   // FrFF
	Crying           int `json:"crying"`           // D17
	VegetableVariety int `json:"vegetableVariety"` // DVT
	Fighting         int `json:"fighting"`         // FF
	Distress2        int `json:"distress2"`        // D3
	Punishment       int `json:"punishment"`       // PPP
}

// StudentProfile is the raw form input for one assessment.
type StudentProfile struct {
	Sex      Sex             `json:"sex"`
	AgeYears float64         `json:"ageYears"`
	HeightCm float64         `json:"heightCm"`
	WeightKg float64         `json:"weightKg"`
	Survey   SurveyResponses `json:"survey"`
}

// Option is one selectable answer of a survey question.
type Option struct {
	Code  int    `json:"code"`
	Label string `json:"label"`
}

// Question describes a survey item and its closed set of answer codes.
type Question struct {
	Field   string   `json:"field"`
	Item    string   `json:"item"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

func (q Question) accepts(code int) bool {
	for _, opt := range q.Options {
		if opt.Code == code {
			return true
		}
	}
	return false
}

var frequencyOptions = []Option{
	{1, "rarely or never"},
	{2, "sometimes"},
	{3, "often or half the time"},
	{4, "most of the time"},
	{5, "not sure"},
}

var yesNoOptions = []Option{{1, "yes"}, {0, "no"}}

// Questions lists the survey items in form order.
var Questions = []Question{
	{Field: "peFrequency", Item: "PEC", Prompt: "PE classes per week", Options: []Option{
		{1, "none"}, {2, "1"}, {3, "2"}, {4, "3"}, {5, "4"}, {6, "5 or more"},
	}},
	{Field: "fruitFrequency", Item: "FrFF", Prompt: "Fruit eaten in the past seven days", Options: []Option{
		{1, "never"}, {2, "less than once a day"}, {3, "once a day"}, {4, "twice a day or more"},
	}},
	{Field: "vegetableVariety", Item: "DVT", Prompt: "Kinds of vegetables eaten per day", Options: []Option{
		{1, "none or less than one"}, {2, "one"}, {3, "two"}, {4, "three or more"},
	}},
	{Field: "distress1", Item: "D1", Prompt: "Bothered by things that usually don't bother you", Options: frequencyOptions},
	{Field: "appetite", Item: "D2", Prompt: "Poor appetite", Options: frequencyOptions},
	{Field: "distress2", Item: "D3", Prompt: "Could not shake off the blues", Options: frequencyOptions},
	{Field: "worthlessness", Item: "D9", Prompt: "Thought your life had been a failure", Options: frequencyOptions},
	{Field: "sleep", Item: "D11", Prompt: "Sleep was restless", Options: frequencyOptions},
	{Field: "crying", Item: "D17", Prompt: "Had crying spells", Options: frequencyOptions},
	{Field: "headphoneUse", Item: "HU", Prompt: "Uses headphones for more than 30 minutes", Options: []Option{
		{1, "no"}, {2, "yes"},
	}},
	{Field: "fighting", Item: "FF", Prompt: "In a physical fight in the past 12 months", Options: yesNoOptions},
	{Field: "punishment", Item: "PPP", Prompt: "Hit or scolded by parents in the past 30 days", Options: yesNoOptions},
}

func (s SurveyResponses) codes() map[string]int {
	return map[string]int{
		"appetite":         s.Appetite,
		"distress1":        s.Distress1,
		"worthlessness":    s.Worthlessness,
		"headphoneUse":     s.HeadphoneUse,
		"sleep":            s.Sleep,
		"peFrequency":      s.PEFrequency,
		"fruitFrequency":   s.FruitFrequency,
		"crying":           s.Crying,
		"vegetableVariety": s.VegetableVariety,
		"fighting":         s.Fighting,
		"distress2":        s.Distress2,
		"punishment":       s.Punishment,
	}
}

// Validate checks every answer against its option set, in form order.
func (s SurveyResponses) Validate() error {
	codes := s.codes()
	for _, q := range Questions {
		code := codes[q.Field]
		if !q.accepts(code) {
			return fmt.Errorf("%w: %s (%s) = %d", ErrInvalidSurveyResponse, q.Field, q.Item, code)
		}
	}
	return nil
}

// Validate checks the sex, the measurements and the survey answers.
func (p StudentProfile) Validate() error {
	if !p.Sex.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSex, int(p.Sex))
	}
	if _, err := p.BMI(); err != nil {
		return err
	}
	return p.Survey.Validate()
}

func (p StudentProfile) BMI() (float64, error) {
	return BMI(p.HeightCm, p.WeightKg)
}

// ClassifyBaseline derives the baseline obesity flag of the profile.
func (p StudentProfile) ClassifyBaseline() (int, error) {
	return ClassifyBaseline(p.AgeYears, p.Sex, p.HeightCm, p.WeightKg)
}
