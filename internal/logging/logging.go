// Package logging builds the process logger and names the pipeline phases
// every log line is tagged with.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Pipeline phases, carried in the "phase" field.
const (
	PhaseRead  = "READ"
	PhaseInit  = "INIT"
	PhaseStage = "STAGE"
	PhaseMerge = "MERGE"
	PhaseGoal  = "GOAL"
	PhasePivot = "PIVOT"
	PhaseFail  = "FAIL"
)

// Field names shared across packages.
const (
	FieldPhase = "phase"
	FieldRunID = "run_id"
)

// TimestampFormat is used by the text formatter.
const TimestampFormat = "2006-01-02 15:04:05"

// New returns a logger writing to w at the given level ("debug", "info",
// ...) in "text" or "json" format.
func New(level, format string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: TimestampFormat,
			DisableColors:   true,
		})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: TimestampFormat})
	default:
		return nil, fmt.Errorf("log format %q: want text or json", format)
	}
	return l, nil
}

// Phase tags l with a pipeline phase.
func Phase(l logrus.FieldLogger, phase string) *logrus.Entry {
	return l.WithField(FieldPhase, phase)
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
