package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Hx199814/oneyearobesity/config"
	"github.com/Hx199814/oneyearobesity/inference"
	"github.com/Hx199814/oneyearobesity/obesity"
	"github.com/Hx199814/oneyearobesity/utils"
	"golang.org/x/sync/errgroup"
)

// EvaluationConfig holds evaluation parameters
type EvaluationConfig struct {
	DataPath    string
	LabelColumn string
	Model       config.ModelConfig
	Workers     int
	ReportPath  string
	Verbose     bool
}

// sample is one labelled row of the evaluation CSV.
type sample struct {
	Row      int
	Features obesity.FeatureVector
	Label    int
}

type ClassMetrics struct {
	Label     string  `json:"label"`
	Support   int     `json:"support"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

type Misclassification struct {
	Row         int     `json:"row"`
	TrueClass   int     `json:"trueClass"`
	Predicted   int     `json:"predicted"`
	Probability float64 `json:"probability"`
}

// confusionMatrix is indexed [true class][predicted class].
type confusionMatrix [obesity.NumClasses][obesity.NumClasses]int

// EvaluationReport contains comprehensive evaluation results
type EvaluationReport struct {
	Timestamp       time.Time                 `json:"timestamp"`
	DataPath        string                    `json:"dataPath"`
	Model           *obesity.ModelDescription `json:"model,omitempty"`
	TotalSamples    int                       `json:"totalSamples"`
	CorrectCount    int                       `json:"correctCount"`
	Accuracy        float64                   `json:"accuracy"`
	ClassMetrics    []ClassMetrics            `json:"classMetrics"`
	ConfusionMatrix confusionMatrix           `json:"confusionMatrix"`
	Fallbacks       int                       `json:"fallbacks"`
	Misclassified   []Misclassification       `json:"misclassified,omitempty"`
	ProcessingTime  time.Duration             `json:"processingTime"`
}

func main() {
	cfg := parseFlags()
	ctx := context.Background()

	log.SetFlags(log.Ldate | log.Ltime)
	log.Println("=== Model Evaluation ===")
	log.Printf("Data: %s\n", cfg.DataPath)
	log.Printf("Backend: %s\n", cfg.Model.Backend)

	samples, err := readSamples(cfg.DataPath, cfg.LabelColumn)
	if err != nil {
		log.Fatalf("ERROR: Failed to read evaluation data: %v", err)
	}
	log.Printf("Loaded %d labelled rows\n", len(samples))

	pipeline, err := inference.Load(ctx, cfg.Model, utils.GetLogger())
	if err != nil {
		log.Fatalf("ERROR: Failed to load model: %v", err)
	}

	report, err := evaluate(ctx, pipeline, samples, cfg.Workers)
	if err != nil {
		log.Fatalf("ERROR: Evaluation failed: %v", err)
	}
	report.DataPath = cfg.DataPath

	printReport(os.Stdout, report, cfg.Verbose)

	if cfg.ReportPath != "" {
		if err := saveReport(report, cfg.ReportPath); err != nil {
			log.Printf("WARNING: Failed to save report: %v\n", err)
		} else {
			log.Printf("Report saved to: %s\n", cfg.ReportPath)
		}
	}
}

func parseFlags() EvaluationConfig {
	cfg := EvaluationConfig{Model: config.Load().Model}

	flag.StringVar(&cfg.DataPath, "data", "evaluation.csv",
		"Labelled CSV with one column per feature name")
	flag.StringVar(&cfg.LabelColumn, "label", "label",
		"Column holding the true class (0/1 or a class name)")
	flag.StringVar(&cfg.Model.Backend, "backend", cfg.Model.Backend,
		"Model backend (prototype or remote)")
	flag.StringVar(&cfg.Model.Path, "model", cfg.Model.Path,
		"Prototype model artifact")
	flag.BoolVar(&cfg.Model.AllowExample, "allow-example", cfg.Model.AllowExample,
		"Use the bundled example artifact when the model file is missing")
	flag.IntVar(&cfg.Model.K, "k", cfg.Model.K,
		"Number of nearest prototypes")
	flag.StringVar(&cfg.Model.ServiceURL, "service", cfg.Model.ServiceURL,
		"Model service URL for the remote backend")
	flag.IntVar(&cfg.Workers, "workers", 4,
		"Concurrent predictions")
	flag.StringVar(&cfg.ReportPath, "report", "",
		"Path to save a JSON report (empty to skip)")
	flag.BoolVar(&cfg.Verbose, "verbose", false,
		"List every misclassified row")

	flag.Parse()
	return cfg
}

// readSamples reads the CSV. Columns are matched by header name, so their
// order in the file does not matter and extra columns are ignored.
func readSamples(path, labelColumn string) ([]sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseSamples(f, labelColumn)
}

func parseSamples(r io.Reader, labelColumn string) ([]sample, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var columns [obesity.FeatureCount]int
	for i, name := range obesity.FeatureNames {
		col, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("missing feature column %q", name)
		}
		columns[i] = col
	}
	labelCol, ok := index[labelColumn]
	if !ok {
		return nil, fmt.Errorf("missing label column %q", labelColumn)
	}

	var samples []sample
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		s := sample{Row: row}
		for i, col := range columns {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, %s: %w", row, obesity.FeatureNames[i], err)
			}
			s.Features[i] = v
		}
		s.Label, err = parseLabel(record[labelCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		samples = append(samples, s)
	}

	if len(samples) == 0 {
		return nil, errors.New("no labelled rows")
	}
	return samples, nil
}

func parseLabel(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		if f == 0 || f == 1 {
			return int(f), nil
		}
	}
	for class, name := range obesity.ClassLabels {
		if strings.EqualFold(value, name) {
			return class, nil
		}
	}
	return 0, fmt.Errorf("unknown class label %q", raw)
}

func evaluate(ctx context.Context, pipeline *obesity.Pipeline, samples []sample, workers int) (EvaluationReport, error) {
	report := EvaluationReport{Timestamp: time.Now()}
	if info := pipeline.Info(); info.Model != nil {
		report.Model = info.Model
	}

	results := make([]*obesity.PredictionResult, len(samples))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, s := range samples {
		g.Go(func() error {
			result, err := pipeline.PredictVector(gctx, s.Features)
			if err != nil {
				return fmt.Errorf("row %d: %w", s.Row, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	for i, s := range samples {
		result := results[i]
		report.ConfusionMatrix[s.Label][result.ClassLabel]++
		if result.Fallback != nil {
			report.Fallbacks++
		}
		if result.ClassLabel == s.Label {
			report.CorrectCount++
			continue
		}
		report.Misclassified = append(report.Misclassified, Misclassification{
			Row:         s.Row,
			TrueClass:   s.Label,
			Predicted:   result.ClassLabel,
			Probability: result.Probability(),
		})
	}

	report.TotalSamples = len(samples)
	report.Accuracy = float64(report.CorrectCount) / float64(report.TotalSamples)
	report.ClassMetrics = classMetrics(report.ConfusionMatrix)
	report.ProcessingTime = time.Since(report.Timestamp)
	return report, nil
}

// classMetrics derives precision, recall and F1 per class.
func classMetrics(matrix confusionMatrix) []ClassMetrics {
	metrics := make([]ClassMetrics, obesity.NumClasses)
	for class := range metrics {
		tp := matrix[class][class]
		var support, predicted int
		for other := 0; other < obesity.NumClasses; other++ {
			support += matrix[class][other]
			predicted += matrix[other][class]
		}

		m := ClassMetrics{Label: obesity.ClassLabels[class], Support: support}
		if predicted > 0 {
			m.Precision = float64(tp) / float64(predicted)
		}
		if support > 0 {
			m.Recall = float64(tp) / float64(support)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		metrics[class] = m
	}
	return metrics
}

func printReport(w io.Writer, report EvaluationReport, verbose bool) {
	fmt.Fprintln(w, "=== Evaluation Report ===")
	if report.Model != nil {
		fmt.Fprintf(w, "Model:    %s %s\n", report.Model.Backend, report.Model.Source)
	}
	fmt.Fprintf(w, "Samples:  %d\n", report.TotalSamples)
	fmt.Fprintf(w, "Accuracy: %.2f%% (%d/%d)\n", report.Accuracy*100, report.CorrectCount, report.TotalSamples)
	if report.Fallbacks > 0 {
		fmt.Fprintf(w, "Argmax fallbacks: %d\n", report.Fallbacks)
	}

	fmt.Fprintln(w, "\nPer class:")
	fmt.Fprintf(w, "   %-14s %9s %9s %9s %8s\n", "class", "precision", "recall", "f1", "support")
	for _, m := range report.ClassMetrics {
		fmt.Fprintf(w, "   %-14s %9.3f %9.3f %9.3f %8d\n", m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}

	fmt.Fprintln(w, "\nConfusion matrix (rows: true, columns: predicted):")
	fmt.Fprintf(w, "   %-14s", "")
	for _, label := range obesity.ClassLabels {
		fmt.Fprintf(w, " %14s", label)
	}
	fmt.Fprintln(w)
	for class, row := range report.ConfusionMatrix {
		fmt.Fprintf(w, "   %-14s", obesity.ClassLabels[class])
		for _, count := range row {
			fmt.Fprintf(w, " %14d", count)
		}
		fmt.Fprintln(w)
	}

	if verbose && len(report.Misclassified) > 0 {
		fmt.Fprintln(w, "\nMisclassified rows:")
		for _, m := range report.Misclassified {
			fmt.Fprintf(w, "   row %-5d true %d predicted %d (p=%.2f)\n", m.Row, m.TrueClass, m.Predicted, m.Probability)
		}
	}
}

func saveReport(report EvaluationReport, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := utils.CreateFolder(dir); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
