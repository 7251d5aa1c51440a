package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/vango-dev/atomstore/pkg/reactive"
)

// Category represents the type of error.
type Category string

const (
	CategoryStore    Category = "store"
	CategoryScenario Category = "scenario"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// Location represents a position in a scenario or config file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Diagnostic is a structured error with a code, an explanation, a fix
// suggestion and, for file errors, the offending lines.
type Diagnostic struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error type (store, scenario, config, cli).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position where the error occurred.
	Location *Location

	// Context contains the file lines surrounding Location.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example shows the correct approach.
	Example string

	// DocURL points to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Diagnostic) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Diagnostic) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file position and reads the lines around it.
func (e *Diagnostic) WithLocation(file string, line, column int) *Diagnostic {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Diagnostic) WithSuggestion(s string) *Diagnostic {
	e.Suggestion = s
	return e
}

// WithExample adds an example to the error.
func (e *Diagnostic) WithExample(ex string) *Diagnostic {
	e.Example = ex
	return e
}

// WithDetail replaces the detailed explanation.
func (e *Diagnostic) WithDetail(d string) *Diagnostic {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *Diagnostic) Wrap(err error) *Diagnostic {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a Diagnostic from a registered error code.
func New(code string) *Diagnostic {
	template, ok := registry[code]
	if !ok {
		return &Diagnostic{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Diagnostic{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
		DocURL:     template.DocURL,
	}
}

// Newf creates a Diagnostic with a formatted message and no code.
func Newf(category Category, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError converts err to a Diagnostic. Store errors keep their own code;
// anything else gets fallback.
func FromError(err error, fallback string) *Diagnostic {
	if err == nil {
		return nil
	}
	var d *Diagnostic
	if stderrors.As(err, &d) {
		return d
	}
	if code, ok := reactive.CodeOf(err); ok {
		return New(string(code)).Wrap(err)
	}
	return New(fallback).Wrap(err)
}
