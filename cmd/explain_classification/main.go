package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Hx199814/oneyearobesity/obesity"
	"github.com/Hx199814/oneyearobesity/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// profileFile is the on-disk form of a student profile. YAML is a superset
// of JSON, so the same file can be written either way.
type profileFile struct {
	Sex      string  `yaml:"sex"`
	AgeYears float64 `yaml:"ageYears"`
	HeightCm float64 `yaml:"heightCm"`
	WeightKg float64 `yaml:"weightKg"`
	Survey   struct {
		Appetite         int `yaml:"appetite"`
		Distress1        int `yaml:"distress1"`
		Worthlessness    int `yaml:"worthlessness"`
		HeadphoneUse     int `yaml:"headphoneUse"`
		Sleep            int `yaml:"sleep"`
		PEFrequency      int `yaml:"peFrequency"`
		FruitFrequency   int `yaml:"fruitFrequency"`
		Crying           int `yaml:"crying"`
		VegetableVariety int `yaml:"vegetableVariety"`
		Fighting         int `yaml:"fighting"`
		Distress2        int `yaml:"distress2"`
		Punishment       int `yaml:"punishment"`
	} `yaml:"survey"`
}

type options struct {
	profilePath string
	modelPath   string
	k           int
	sex         string
	age         float64
	height      float64
	weight      float64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "explain_classification",
		Short: "Explain how one student profile is classified",
		Long: `Prints the BMI, the reference band and threshold, the baseline flag,
the named feature vector and the model output for a single profile.

The profile comes from a YAML or JSON file (--profile). Measurement flags
override the values read from the file.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := opts.resolveProfile(cmd)
			if err != nil {
				return err
			}
			return explain(cmd.Context(), cmd.OutOrStdout(), profile, opts.modelPath, opts.k)
		},
	}

	defaultModel := utils.GetEnv("MODEL_PATH", filepath.Join("obesity", "model.json"))
	cmd.Flags().StringVarP(&opts.profilePath, "profile", "f", "", "YAML or JSON profile file")
	cmd.Flags().StringVar(&opts.modelPath, "model", defaultModel, "Prototype model artifact")
	cmd.Flags().IntVar(&opts.k, "k", utils.GetEnvInt("MODEL_K", 5), "Number of nearest prototypes")
	cmd.Flags().StringVar(&opts.sex, "sex", "", "male or female")
	cmd.Flags().Float64Var(&opts.age, "age", 0, "Age in years")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "Height in cm")
	cmd.Flags().Float64Var(&opts.weight, "weight", 0, "Weight in kg")

	return cmd
}

func (o *options) resolveProfile(cmd *cobra.Command) (obesity.StudentProfile, error) {
	var file profileFile
	if o.profilePath != "" {
		data, err := os.ReadFile(o.profilePath)
		if err != nil {
			return obesity.StudentProfile{}, fmt.Errorf("failed to read profile: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return obesity.StudentProfile{}, fmt.Errorf("failed to parse profile %s: %w", o.profilePath, err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("sex") {
		file.Sex = o.sex
	}
	if flags.Changed("age") {
		file.AgeYears = o.age
	}
	if flags.Changed("height") {
		file.HeightCm = o.height
	}
	if flags.Changed("weight") {
		file.WeightKg = o.weight
	}

	return file.toProfile()
}

func (f profileFile) toProfile() (obesity.StudentProfile, error) {
	sex, err := obesity.ParseSex(f.Sex)
	if err != nil {
		return obesity.StudentProfile{}, err
	}
	s := f.Survey
	return obesity.StudentProfile{
		Sex:      sex,
		AgeYears: f.AgeYears,
		HeightCm: f.HeightCm,
		WeightKg: f.WeightKg,
		Survey: obesity.SurveyResponses{
			Appetite:         s.Appetite,
			Distress1:        s.Distress1,
			Worthlessness:    s.Worthlessness,
			HeadphoneUse:     s.HeadphoneUse,
			Sleep:            s.Sleep,
			PEFrequency:      s.PEFrequency,
			FruitFrequency:   s.FruitFrequency,
			Crying:           s.Crying,
			VegetableVariety: s.VegetableVariety,
			Fighting:         s.Fighting,
			Distress2:        s.Distress2,
			Punishment:       s.Punishment,
		},
	}, nil
}

func explain(ctx context.Context, w io.Writer, profile obesity.StudentProfile, modelPath string, k int) error {
	reading, err := obesity.ReadBaseline(profile.AgeYears, profile.Sex, profile.HeightCm, profile.WeightKg)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "=== Baseline ===")
	fmt.Fprintf(w, "Student:   %s, %.1f years, %.1f cm, %.1f kg\n", profile.Sex, profile.AgeYears, profile.HeightCm, profile.WeightKg)
	fmt.Fprintf(w, "BMI:       %.2f\n", reading.BMI)
	if reading.Band == nil {
		fmt.Fprintln(w, "Band:      none (younger than the reference table)")
	} else if reading.Band.Adult {
		fmt.Fprintf(w, "Band:      adult (%.1f+)\n", reading.Band.StartAge)
	} else {
		fmt.Fprintf(w, "Band:      [%.1f, %.1f)\n", reading.Band.StartAge, reading.Band.EndAge)
	}
	if reading.Band != nil {
		fmt.Fprintf(w, "Threshold: %.1f (%s)\n", reading.Threshold, profile.Sex)
	}
	fmt.Fprintf(w, "Baseline obese: %d\n", reading.BaselineObese)

	vec := obesity.BuildFeatureVector(profile, reading.BaselineObese)
	fmt.Fprintln(w, "\n=== Feature vector ===")
	for i, name := range obesity.FeatureNames {
		fmt.Fprintf(w, "%2d  %-8s %g\n", i, name, vec[i])
	}

	if err := profile.Survey.Validate(); err != nil {
		fmt.Fprintf(w, "\nSurvey is incomplete, skipping the model: %v\n", err)
		return nil
	}

	model, err := obesity.NewPrototypeModelFromFile(modelPath, k)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	desc := model.Describe()
	fmt.Fprintf(w, "\n=== Model (%s, k=%d) ===\n", desc.Source, desc.Stats.K)
	if ignored := desc.Stats.IgnoredFeatures; len(ignored) > 0 {
		fmt.Fprintf(w, "Ignored columns (constant across prototypes): %s\n", strings.Join(ignored, ", "))
	}

	neighbors, err := model.Neighbors(ctx, vec)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Nearest prototypes:")
	for _, n := range neighbors {
		fmt.Fprintf(w, "   %-12s %-14s distance %.4f  weight %.2f\n", n.ID, obesity.ClassLabels[n.Class], n.Distance, n.Weight)
	}

	pipeline := obesity.NewPipeline(model)
	result, err := pipeline.PredictVector(ctx, vec)
	if err != nil {
		return err
	}
	assessment := obesity.NewAssessment(reading, vec, result, 0)

	fmt.Fprintln(w, "\nClass shares:")
	bars := append([]obesity.ProbabilityBar(nil), assessment.Distribution...)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Probability > bars[j].Probability })
	for _, bar := range bars {
		fmt.Fprintf(w, "   %-14s %5.1f%%\n", bar.Label, bar.Percent)
	}
	fmt.Fprintf(w, "\nPrediction: %s (%s %.1f%%)\n", obesity.ClassLabels[result.ClassLabel], assessment.ProbabilityLabel, assessment.ProbabilityPercent)
	return nil
}
