package model

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes a generation failure. Every kind is fatal: the run stops
// and nothing further is written.
type Kind string

const (
	KindMissingParent   Kind = "missing_parent"
	KindCycle           Kind = "cycle"
	KindMemberCollision Kind = "member_collision"
	KindSlotCollision   Kind = "slot_collision"
	KindMultipleParcels Kind = "multiple_parcels"
	KindNoSourceClasses Kind = "no_source_classes"
	KindUnknownType     Kind = "unknown_type"
	KindNotDumpable     Kind = "not_dumpable"
	KindInvalidModel    Kind = "invalid_model"
	KindIO              Kind = "io"
)

// Error identifies the class, method or field a failure is about.
type Error struct {
	Kind   Kind
	Class  string
	Method string
	Field  string
	Path   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	var at []string
	if e.Class != "" {
		at = append(at, "class "+e.Class)
	}
	if e.Method != "" {
		at = append(at, "method "+e.Method)
	}
	if e.Field != "" {
		at = append(at, "field "+e.Field)
	}
	if e.Path != "" {
		at = append(at, "path "+e.Path)
	}
	if len(at) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(at, ", "))
		b.WriteByte(')')
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err,
// &Error{Kind: KindCycle}) works without comparing identities.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Kind == e.Kind
	}
	return false
}

// Errorf builds an Error of the given kind with a formatted detail.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
