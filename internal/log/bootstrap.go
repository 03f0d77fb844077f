// Package log bootstraps zerolog the way the rest of this module's
// ambient stack expects, and adapts a console-style progress
// indicator to report replay progress instead of scan progress.
package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Bootstrap configures the global zerolog logger. In a TTY it writes a
// human-readable console format; otherwise it writes structured JSON,
// matching how the rest of the pack distinguishes interactive from
// automated runs.
func Bootstrap(level zerolog.Level) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	if term.IsTerminal(int(os.Stdout.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
