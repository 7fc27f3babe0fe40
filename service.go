package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Hx199814/oneyearobesity/advice"
	"github.com/Hx199814/oneyearobesity/config"
	"github.com/Hx199814/oneyearobesity/obesity"
	"github.com/mdobak/go-xerrors"
)

// assessmentService is shared by the HTTP handlers and the socket controller.
// timeout bounds a whole assessment; adviceTimeout bounds the advice step
// inside it. Zero disables either bound.
type assessmentService struct {
	pipeline      *obesity.Pipeline
	advisor       advice.Advisor
	logger        *slog.Logger
	timeout       time.Duration
	adviceTimeout time.Duration
}

// baselineRequest carries the fields the live BMI readout needs. The survey
// may still be incomplete while the form is being filled in.
type baselineRequest struct {
	Sex      obesity.Sex `json:"sex"`
	AgeYears float64     `json:"ageYears"`
	HeightCm float64     `json:"heightCm"`
	WeightKg float64     `json:"weightKg"`
}

func newAdvisor(ctx context.Context, cfg config.AdviceConfig, logger *slog.Logger) advice.Advisor {
	if cfg.GeminiAPIKey == "" {
		return advice.StaticAdvisor{}
	}

	gemini, err := advice.NewGeminiAdvisor(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		err := xerrors.New(err)
		logger.WarnContext(ctx, "gemini advice disabled", slog.Any("error", err))
		return advice.StaticAdvisor{}
	}
	logger.InfoContext(ctx, "gemini advice enabled", slog.String("model", cfg.GeminiModel))
	return advice.NewFallbackAdvisor(gemini, advice.StaticAdvisor{})
}

func (s *assessmentService) baseline(req baselineRequest) (*obesity.BaselineReading, error) {
	if !req.Sex.Valid() {
		return nil, fmt.Errorf("%w: %d", obesity.ErrInvalidSex, int(req.Sex))
	}
	return obesity.ReadBaseline(req.AgeYears, req.Sex, req.HeightCm, req.WeightKg)
}

// assess owns the request deadline. Once the prediction is in, the call
// always succeeds: advice that is slow or fails is replaced by the static text.
func (s *assessmentService) assess(ctx context.Context, profile obesity.StudentProfile) (*obesity.Assessment, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	assessment, err := s.pipeline.Assess(ctx, profile)
	if err != nil {
		return nil, err
	}
	assessment.Advice = s.advise(ctx, assessment)

	s.logger.InfoContext(ctx, "assessment complete",
		slog.String("id", assessment.ID),
		slog.Int("class", assessment.Prediction.ClassLabel),
		slog.Int("baselineObese", assessment.BaselineObese),
		slog.Float64("probability", assessment.Prediction.Probability()),
		slog.Bool("fallback", assessment.Prediction.Fallback != nil),
		slog.Float64("latencyMs", assessment.LatencyMs),
	)
	return assessment, nil
}

func (s *assessmentService) advise(ctx context.Context, assessment *obesity.Assessment) string {
	adviceCtx := ctx
	if s.adviceTimeout > 0 {
		var cancel context.CancelFunc
		adviceCtx, cancel = context.WithTimeout(ctx, s.adviceTimeout)
		defer cancel()
	}

	text, err := s.advisor.Advise(adviceCtx, assessment)
	if err == nil {
		return text
	}
	logErr := xerrors.New(err)
	s.logger.WarnContext(ctx, "advice unavailable", slog.Any("error", logErr))
	text, _ = advice.StaticAdvisor{}.Advise(ctx, assessment)
	return text
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, obesity.ErrInvalidMeasurement),
		errors.Is(err, obesity.ErrInvalidSex),
		errors.Is(err, obesity.ErrInvalidSurveyResponse):
		return http.StatusBadRequest
	case errors.Is(err, obesity.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, obesity.ErrInference):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is what clients see for a failed request. Model and
// transport details stay in the logs.
func publicMessage(status int, err error) string {
	switch status {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusServiceUnavailable:
		return "prediction model is unavailable"
	case http.StatusGatewayTimeout:
		return "prediction timed out"
	case http.StatusBadGateway:
		return "prediction failed"
	default:
		return "internal error"
	}
}
