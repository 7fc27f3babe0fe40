package inference

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Hx199814/oneyearobesity/config"
	"github.com/Hx199814/oneyearobesity/obesity"
	"github.com/mdobak/go-xerrors"
)

// Load builds the prediction pipeline for the configured backend. The model
// is loaded exactly once here. When loading fails the returned pipeline is
// still usable for baseline classification: it reports the failure through
// Info and rejects every prediction with obesity.ErrModelUnavailable. The
// load error is logged and also returned so tools can stop early.
func Load(ctx context.Context, cfg config.ModelConfig, logger *slog.Logger) (*obesity.Pipeline, error) {
	opts := []obesity.PipelineOption{obesity.WithLogger(logger)}

	model, err := loadModel(ctx, cfg)
	if err != nil {
		logErr := xerrors.New(err)
		logger.ErrorContext(ctx, "model unavailable, predictions disabled",
			slog.String("backend", cfg.Backend),
			slog.Any("error", logErr),
		)
		return obesity.NewUnavailablePipeline(err, opts...), err
	}

	pipeline := obesity.NewPipeline(model, opts...)
	info := pipeline.Info()
	attrs := []any{slog.String("backend", cfg.Backend)}
	if info.Model != nil {
		attrs = append(attrs, slog.String("source", info.Model.Source))
		if stats := info.Model.Stats; stats != nil {
			attrs = append(attrs,
				slog.Int("prototypes", stats.PrototypeCount),
				slog.Int("k", stats.K),
				slog.Bool("usingExample", stats.UsingExample),
			)
		}
	}
	logger.InfoContext(ctx, "model loaded", attrs...)
	return pipeline, nil
}

func loadModel(ctx context.Context, cfg config.ModelConfig) (obesity.PredictiveModel, error) {
	switch cfg.Backend {
	case config.BackendPrototype, "":
		load := obesity.NewPrototypeModelFromFile
		if cfg.AllowExample {
			load = obesity.NewPrototypeModelFromFileOrExample
		}
		model, err := load(cfg.Path, cfg.K)
		if err != nil {
			return nil, err
		}
		return model, nil
	case config.BackendRemote:
		model := NewRemoteModel(cfg.ServiceURL, cfg.Timeout)
		if err := model.HealthCheck(ctx); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
}
