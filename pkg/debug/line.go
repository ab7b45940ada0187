package debug

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Phase is the half of a dispatch a line describes.
type Phase string

const (
	PhaseStart Phase = "START"
	PhaseEnd   Phase = "END"
)

// ErrMalformedLine is returned by ParseLine for text that is not a trace line.
var ErrMalformedLine = errors.New("malformed debug line")

// Line is a parsed trace line.
type Line struct {
	ID    string
	Phase Phase
	// Kind is set on START lines.
	Kind string
	// Elapsed is set on END lines.
	Elapsed time.Duration
}

// FormatStart returns the START line for a dispatch, without the newline.
func FormatStart(id, kind string) string {
	return fmt.Sprintf("%s - %s - %s", id, PhaseStart, kind)
}

// FormatEnd returns the END line for a dispatch, without the newline.
func FormatEnd(id string, elapsed time.Duration) string {
	return fmt.Sprintf("%s - %s [%d ns]", id, PhaseEnd, elapsed.Nanoseconds())
}

// String formats l back into its wire form.
func (l Line) String() string {
	if l.Phase == PhaseEnd {
		return FormatEnd(l.ID, l.Elapsed)
	}
	return FormatStart(l.ID, l.Kind)
}

// ParseLine parses one line of the protocol. A trailing newline is ignored.
func ParseLine(text string) (Line, error) {
	text = strings.TrimRight(text, "\r\n")
	id, rest, ok := strings.Cut(text, " - ")
	if !ok || id == "" {
		return Line{}, fmt.Errorf("%w: %q", ErrMalformedLine, text)
	}

	if kind, ok := strings.CutPrefix(rest, string(PhaseStart)+" - "); ok {
		if kind == "" {
			return Line{}, fmt.Errorf("%w: missing action kind: %q", ErrMalformedLine, text)
		}
		return Line{ID: id, Phase: PhaseStart, Kind: kind}, nil
	}

	if tail, ok := strings.CutPrefix(rest, string(PhaseEnd)+" ["); ok {
		ns, ok := strings.CutSuffix(tail, " ns]")
		if !ok {
			return Line{}, fmt.Errorf("%w: %q", ErrMalformedLine, text)
		}
		n, err := strconv.ParseInt(ns, 10, 64)
		if err != nil {
			return Line{}, fmt.Errorf("%w: elapsed: %v", ErrMalformedLine, err)
		}
		return Line{ID: id, Phase: PhaseEnd, Elapsed: time.Duration(n)}, nil
	}

	return Line{}, fmt.Errorf("%w: %q", ErrMalformedLine, text)
}
