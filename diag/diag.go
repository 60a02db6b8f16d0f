// Package diag holds the error kinds of an import and the log of recoverable warnings.
package diag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/golang/glog"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindFormat
	KindUndefinedAperture
	KindUnsupportedAperture
	KindGeometryDegenerate
	KindArcConsistency
	KindSizeLimit
	KindSyntax
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "FormatError"
	case KindUndefinedAperture:
		return "UndefinedApertureError"
	case KindUnsupportedAperture:
		return "UnsupportedApertureError"
	case KindGeometryDegenerate:
		return "GeometryDegenerateError"
	case KindArcConsistency:
		return "ArcConsistencyError"
	case KindSizeLimit:
		return "SizeLimitError"
	case KindSyntax:
		return "SyntaxError"
	case KindCanceled:
		return "Canceled"
	}
	return "UnknownError"
}

// Fatal kinds abort the import. UnsupportedAperture is fatal only in strict mode,
// the caller decides.
func (k Kind) Fatal() bool {
	return k == KindFormat || k == KindSizeLimit || k == KindCanceled
}

var (
	ErrFormat              = errors.New("format error")
	ErrUndefinedAperture   = errors.New("undefined aperture")
	ErrUnsupportedAperture = errors.New("unsupported aperture")
	ErrGeometryDegenerate  = errors.New("degenerate geometry")
	ErrArcConsistency      = errors.New("inconsistent arc")
	ErrSizeLimit           = errors.New("size limit exceeded")
	ErrSyntax              = errors.New("syntax error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindFormat:
		return ErrFormat
	case KindUndefinedAperture:
		return ErrUndefinedAperture
	case KindUnsupportedAperture:
		return ErrUnsupportedAperture
	case KindGeometryDegenerate:
		return ErrGeometryDegenerate
	case KindArcConsistency:
		return ErrArcConsistency
	case KindSizeLimit:
		return ErrSizeLimit
	case KindSyntax:
		return ErrSyntax
	case KindCanceled:
		return context.Canceled
	}
	return nil
}

// Error is the single top level error of a failed import
type Error struct {
	Kind Kind
	Line int // 0 if not bound to a line
	Msg  string
}

func NewError(kind Kind, line int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return e.Kind.String() + " at line " + strconv.Itoa(e.Line) + ": " + e.Msg
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind.sentinel()
}

// Classify maps err to its kind. Only sentinels and *Error are recognized.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	for k := KindFormat; k <= KindSyntax; k++ {
		if errors.Is(err, k.sentinel()) {
			return k
		}
	}
	return KindUnknown
}

type Warning struct {
	Kind    Kind
	Line    int
	Message string
}

func (w Warning) String() string {
	return "line " + strconv.Itoa(w.Line) + ": " + w.Kind.String() + ": " + w.Message
}

// Log collects the recoverable warnings of one import in the order they occurred.
type Log struct {
	mu       sync.Mutex
	warnings []Warning
}

func NewLog() *Log {
	return new(Log)
}

func (l *Log) Add(kind Kind, line int, format string, args ...interface{}) {
	w := Warning{Kind: kind, Line: line, Message: fmt.Sprintf(format, args...)}
	glog.Warningf("%s", w.String())
	l.mu.Lock()
	l.warnings = append(l.warnings, w)
	l.mu.Unlock()
}

// returns a copy
func (l *Log) Warnings() []Warning {
	l.mu.Lock()
	defer l.mu.Unlock()
	retVal := make([]Warning, len(l.warnings))
	copy(retVal, l.warnings)
	return retVal
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warnings)
}

func (l *Log) Count(kind Kind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, w := range l.warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}
