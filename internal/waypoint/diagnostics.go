package waypoint

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrMalformedInput is wrapped by every input the generator refuses.
var ErrMalformedInput = errors.New("malformed input")

// DiagnosticKind classifies a problem found while generating a chunk.
type DiagnosticKind uint8

// Diagnostic kinds. Only MalformedInput aborts generation; the others are
// recovered locally and collected on the Result.
const (
	MalformedInput DiagnosticKind = iota
	DegenerateGeometry
	UnreciprocatedAdjacency
	Overflow
)

func (k DiagnosticKind) String() string {
	switch k {
	case MalformedInput:
		return "malformed-input"
	case DegenerateGeometry:
		return "degenerate-geometry"
	case UnreciprocatedAdjacency:
		return "unreciprocated-adjacency"
	case Overflow:
		return "overflow"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Severity mirrors the log level a diagnostic was reported at.
type Severity uint8

// Severities.
const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Diagnostic is one recorded problem. Node and Polygon are -1 when the
// diagnostic does not concern a specific node or polygon.
type Diagnostic struct {
	Kind     DiagnosticKind
	Severity Severity
	Message  string
	Node     int
	Polygon  int
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %s", d.Severity, d.Kind, d.Message)
}

// GenerationError is returned when a chunk cannot be generated at all.
type GenerationError struct {
	Kind DiagnosticKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("waypoint generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return &GenerationError{
		Kind: MalformedInput,
		Err:  fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...)),
	}
}

// diagnostics collects per-chunk diagnostics and mirrors each one to the
// logger at the matching level.
type diagnostics struct {
	log  *zap.Logger
	list []Diagnostic
}

func newDiagnostics(log *zap.Logger) *diagnostics {
	return &diagnostics{log: log}
}

func (d *diagnostics) add(kind DiagnosticKind, sev Severity, node, poly int, msg string, fields ...zap.Field) {
	d.list = append(d.list, Diagnostic{
		Kind:     kind,
		Severity: sev,
		Message:  msg,
		Node:     node,
		Polygon:  poly,
	})

	fields = append(fields, zap.Stringer("kind", kind))
	if node >= 0 {
		fields = append(fields, zap.Int("node", node))
	}
	if poly >= 0 {
		fields = append(fields, zap.Int("polygon", poly))
	}
	switch sev {
	case SeverityError:
		d.log.Error(msg, fields...)
	case SeverityWarning:
		d.log.Warn(msg, fields...)
	default:
		d.log.Info(msg, fields...)
	}
}

// count returns how many diagnostics of a kind were recorded.
func (d *diagnostics) count(kind DiagnosticKind) int {
	n := 0
	for _, diag := range d.list {
		if diag.Kind == kind {
			n++
		}
	}
	return n
}
