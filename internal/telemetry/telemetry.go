// Package telemetry wraps zerolog for the CLI's workbook lifecycle
// logging.
package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger writing to w (console-formatted if pretty
// is set, otherwise newline-delimited JSON), at the given level.
func New(w io.Writer, level zerolog.Level, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Default returns a zerolog.Logger writing console-formatted output to
// stderr at info level. cmd/gridcalc does not call it; it builds its
// logger with New from its --log-level and --pretty flags.
func Default() zerolog.Logger {
	return New(os.Stderr, zerolog.InfoLevel, true)
}

// Hooks records workbook lifecycle events: sheet opens, evaluation runs,
// and save/export operations.
type Hooks struct {
	log zerolog.Logger
}

// NewHooks constructs a Hooks instance with the provided logger.
func NewHooks(log zerolog.Logger) *Hooks {
	return &Hooks{log: log}
}

// OnOpen records a workbook being opened or created. workbookID is the
// workbook's stable handle (empty when open failed before a Workbook
// existed). Only this event carries the handle: OnEvaluate logs the sheet
// name and OnSave the path, not the workbook ID.
func (h *Hooks) OnOpen(path string, sheetCount int, workbookID string) {
	h.log.Info().Str("path", path).Int("sheets", sheetCount).Str("workbookId", workbookID).Msg("workbook opened")
}

// OnEvaluate records a dependency-checked evaluation run over a sheet.
func (h *Hooks) OnEvaluate(sheet string, cellCount int, duration time.Duration, err error) {
	evt := h.log.Info().Str("sheet", sheet).Int("cells", cellCount).Dur("duration", duration)
	if err != nil {
		h.log.Error().Str("sheet", sheet).Dur("duration", duration).Err(err).Msg("evaluation failed")
		return
	}
	evt.Msg("evaluation completed")
}

// OnSave records a workbook being persisted to path.
func (h *Hooks) OnSave(path string, err error) {
	if err != nil {
		h.log.Error().Str("path", path).Err(err).Msg("save failed")
		return
	}
	h.log.Info().Str("path", path).Msg("workbook saved")
}
