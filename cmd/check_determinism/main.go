package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"github.com/Hx199814/oneyearobesity/obesity"
)

// sweepConfig describes the measurement grid the checks run over.
type sweepConfig struct {
	// Ages are swept in tenths of a year so the grid points are exact.
	FirstTenth int
	LastTenth  int
	Heights    []float64
	Weights    []float64
	Runs       int
}

type sweepReport struct {
	Checked          int
	Nondeterministic []string
	BandGaps         []string
	BandOverlaps     []string
	AdultMismatches  []string
	ModelChecked     int
	ModelMismatches  []string
}

func (r sweepReport) OK() bool {
	return len(r.Nondeterministic) == 0 &&
		len(r.BandGaps) == 0 &&
		len(r.BandOverlaps) == 0 &&
		len(r.AdultMismatches) == 0 &&
		len(r.ModelMismatches) == 0
}

func defaultSweep() sweepConfig {
	cfg := sweepConfig{FirstTenth: 60, LastTenth: 180, Runs: 3}
	for h := 100.0; h <= 190; h += 10 {
		cfg.Heights = append(cfg.Heights, h)
	}
	for w := 20.0; w <= 110; w += 5 {
		cfg.Weights = append(cfg.Weights, w)
	}
	return cfg
}

func main() {
	modelPath := flag.String("model", "", "Also check a prototype model artifact for deterministic output")
	k := flag.Int("k", 5, "Number of nearest prototypes")
	runs := flag.Int("runs", 3, "Repetitions per grid point")
	flag.Parse()

	cfg := defaultSweep()
	cfg.Runs = *runs

	var model obesity.PredictiveModel
	if *modelPath != "" {
		m, err := obesity.NewPrototypeModelFromFile(*modelPath, *k)
		if err != nil {
			log.Fatalf("failed to load model: %v", err)
		}
		model = m
	}

	report := runSweep(context.Background(), cfg, model)
	printReport(os.Stdout, report)
	if !report.OK() {
		os.Exit(1)
	}
}

func runSweep(ctx context.Context, cfg sweepConfig, model obesity.PredictiveModel) sweepReport {
	var report sweepReport
	bands := obesity.ReferenceBands()

	for tenth := cfg.FirstTenth; tenth <= cfg.LastTenth; tenth++ {
		age := float64(tenth) / 10

		matches := 0
		for _, band := range bands {
			if band.Contains(age) {
				matches++
			}
		}
		switch {
		case matches == 0:
			report.BandGaps = append(report.BandGaps, fmt.Sprintf("age %.1f", age))
		case matches > 1:
			report.BandOverlaps = append(report.BandOverlaps, fmt.Sprintf("age %.1f is in %d bands", age, matches))
		}

		for _, sex := range []obesity.Sex{obesity.Male, obesity.Female} {
			for _, height := range cfg.Heights {
				for _, weight := range cfg.Weights {
					report.Checked++
					checkPoint(ctx, &report, cfg.Runs, model, age, sex, height, weight)
				}
			}
		}
	}

	for _, bmi := range []float64{15, 22, 27.9, 28, 35, math.Inf(1)} {
		for _, age := range []float64{obesity.AdultAgeYears, 25, 60} {
			male := obesity.ClassifyBMI(age, obesity.Male, bmi)
			female := obesity.ClassifyBMI(age, obesity.Female, bmi)
			if male != female {
				report.AdultMismatches = append(report.AdultMismatches,
					fmt.Sprintf("age %.1f bmi %.1f: male %d, female %d", age, bmi, male, female))
			}
		}
	}

	return report
}

func checkPoint(ctx context.Context, report *sweepReport, runs int, model obesity.PredictiveModel, age float64, sex obesity.Sex, height, weight float64) {
	first, err := obesity.ClassifyBaseline(age, sex, height, weight)
	if err != nil {
		report.Nondeterministic = append(report.Nondeterministic, fmt.Sprintf("age %.1f %s %.0fcm %.0fkg: %v", age, sex, height, weight, err))
		return
	}
	for i := 1; i < runs; i++ {
		again, _ := obesity.ClassifyBaseline(age, sex, height, weight)
		if again != first {
			report.Nondeterministic = append(report.Nondeterministic,
				fmt.Sprintf("age %.1f %s %.0fcm %.0fkg: %d then %d", age, sex, height, weight, first, again))
			return
		}
	}

	if model == nil {
		return
	}

	profile := obesity.StudentProfile{Sex: sex, AgeYears: age, HeightCm: height, WeightKg: weight}
	vec := obesity.BuildFeatureVector(profile, first)
	want, err := model.PredictProbabilities(ctx, vec)
	if err != nil {
		report.ModelMismatches = append(report.ModelMismatches, err.Error())
		return
	}
	report.ModelChecked++
	for i := 1; i < runs; i++ {
		got, err := model.PredictProbabilities(ctx, vec)
		if err != nil || !sameFloats(want, got) {
			report.ModelMismatches = append(report.ModelMismatches,
				fmt.Sprintf("age %.1f %s %.0fcm %.0fkg: %v then %v", age, sex, height, weight, want, got))
			return
		}
	}
}

func sameFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func printReport(w io.Writer, r sweepReport) {
	fmt.Fprintln(w, "=== Baseline Determinism Check ===")
	fmt.Fprintf(w, "Grid points checked: %d\n", r.Checked)
	printFindings(w, "Non-deterministic results", r.Nondeterministic)
	printFindings(w, "Ages without a band", r.BandGaps)
	printFindings(w, "Ages in more than one band", r.BandOverlaps)
	printFindings(w, "Adult sex mismatches", r.AdultMismatches)
	if r.ModelChecked > 0 || len(r.ModelMismatches) > 0 {
		fmt.Fprintf(w, "Model vectors checked: %d\n", r.ModelChecked)
		printFindings(w, "Model output mismatches", r.ModelMismatches)
	}

	if r.OK() {
		fmt.Fprintln(w, "PASS")
	} else {
		fmt.Fprintln(w, "FAIL")
	}
}

func printFindings(w io.Writer, title string, findings []string) {
	fmt.Fprintf(w, "%s: %d\n", title, len(findings))
	const maxShown = 10
	for i, f := range findings {
		if i == maxShown {
			fmt.Fprintf(w, "   ... %d more\n", len(findings)-maxShown)
			break
		}
		fmt.Fprintf(w, "   - %s\n", f)
	}
}
