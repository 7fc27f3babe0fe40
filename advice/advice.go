package advice

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Hx199814/oneyearobesity/obesity"
	"github.com/Hx199814/oneyearobesity/utils"
	"github.com/mdobak/go-xerrors"
)

const (
	HighRiskAdvice = "Increase daily physical activity to 60 minutes, strictly limit sugar intake and make sure to get enough sleep."
	LowRiskAdvice  = "Keep up the current diet and exercise habits, and keep monitoring height and weight regularly."
)

// Advisor turns an assessment into a short recommendation for the student.
type Advisor interface {
	Advise(ctx context.Context, assessment *obesity.Assessment) (string, error)
}

// StaticAdvisor returns the fixed recommendation for the assessed risk level.
type StaticAdvisor struct{}

func (StaticAdvisor) Advise(_ context.Context, assessment *obesity.Assessment) (string, error) {
	if assessment == nil {
		return "", errors.New("no assessment to advise on")
	}
	if assessment.Risk == obesity.RiskHigh {
		return HighRiskAdvice, nil
	}
	return LowRiskAdvice, nil
}

// FallbackAdvisor asks Primary first and uses Fallback when it fails.
type FallbackAdvisor struct {
	Primary  Advisor
	Fallback Advisor
	logger   *slog.Logger
}

func NewFallbackAdvisor(primary, fallback Advisor) *FallbackAdvisor {
	return &FallbackAdvisor{
		Primary:  primary,
		Fallback: fallback,
		logger:   utils.GetLogger(),
	}
}

func (f *FallbackAdvisor) Advise(ctx context.Context, assessment *obesity.Assessment) (string, error) {
	text, err := f.Primary.Advise(ctx, assessment)
	if err == nil {
		return text, nil
	}

	if f.logger != nil {
		err := xerrors.New(err)
		f.logger.WarnContext(ctx, "advice generation failed, using static advice", slog.Any("error", err))
	}
	return f.Fallback.Advise(ctx, assessment)
}
