package ai

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/civicmitra/backend/internal/models"
)

type Input struct {
	Title        string
	Description  string
	UserCategory string
}

type Classifier interface {
	Classify(ctx context.Context, in Input) (models.Classification, error)
}

// WithFallback tries Primary and answers from the keyword table on any error.
// It never returns an error.
type WithFallback struct {
	Primary  Classifier
	Fallback KeywordClassifier
	Logger   zerolog.Logger
}

func (w WithFallback) Classify(ctx context.Context, in Input) (models.Classification, error) {
	if w.Primary != nil {
		res, err := w.Primary.Classify(ctx, in)
		if err == nil {
			return res, nil
		}
		w.Logger.Warn().Err(err).Msg("ai classification failed, using keyword fallback")
	}
	return w.Fallback.Classify(ctx, in)
}

// New picks the classifier from configuration: remote with fallback when a base URL is
// set, keyword-only otherwise.
func New(baseURL, model, apiKey string, logger zerolog.Logger) Classifier {
	if baseURL == "" || model == "" {
		logger.Info().Msg("using keyword classifier")
		return KeywordClassifier{}
	}
	return WithFallback{
		Primary: &RemoteClassifier{BaseURL: baseURL, Model: model, APIKey: apiKey},
		Logger:  logger,
	}
}
