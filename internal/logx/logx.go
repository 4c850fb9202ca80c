// Package logx builds the engine's logger. Everything logs to stderr so
// stdout stays a clean UCI channel.
package logx

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger at the given level. Unknown level strings
// fall back to info.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if file[i] == '/' {
				short = file[i+1:]
				break
			}
		}
		return fmt.Sprintf("%-24s", fmt.Sprintf("%s:%d", short, line))
	}

	return zerolog.New(output).Level(lvl).With().Timestamp().Caller().Logger()
}
