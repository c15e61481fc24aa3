package service

import (
	"github.com/rs/zerolog"
)

// attempt runs a secondary step of an operation. A failure is logged and
// swallowed so the primary write stands.
func attempt(logger zerolog.Logger, step string, fn func() error) {
	if err := fn(); err != nil {
		logger.Warn().Err(err).Str("step", step).Msg("best-effort step failed")
	}
}
