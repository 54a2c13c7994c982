// Package logging configures the append-only diagnostic log. The log file is
// the only place failures are observable, since every failure path of the
// responder is silent on stdout.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const lineTimeFormat = "2006-01-02 15:04:05"

// New returns a logger that appends lines of the form
// "[YYYY-MM-DD HH:MM:SS] message" to the file at path, creating parent
// directories as needed and rotating the file by size. Logging never fails
// the invocation: if the file cannot be set up, the logger degrades to
// stderr and a note is written there. With debug set, output is teed to
// stderr as well.
func New(path string, debug bool) zerolog.Logger {
	var writers []io.Writer

	if w, err := fileWriter(path); err != nil {
		fmt.Fprintf(os.Stderr, "log error: %v\n", err)
	} else {
		writers = append(writers, console(w))
	}
	if debug || len(writers) == 0 {
		writers = append(writers, console(os.Stderr))
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
}

func fileWriter(path string) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
	}, nil
}

// console renders events as plain "[timestamp] message" lines. Structured
// fields attached to an event follow the message as key=value pairs.
func console(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		PartsOrder: []string{zerolog.TimestampFieldName, zerolog.MessageFieldName},
		FormatTimestamp: func(i interface{}) string {
			ts, ok := i.(string)
			if !ok {
				return fmt.Sprintf("[%v]", i)
			}
			parsed, err := time.Parse(time.RFC3339, ts)
			if err != nil {
				return "[" + ts + "]"
			}
			return parsed.Local().Format("[" + lineTimeFormat + "]")
		},
	}
}
