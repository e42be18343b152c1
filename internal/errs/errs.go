// Package errs defines the error classes a scraping run can fail with.
package errs

import (
	"errors"
	"fmt"
)

// Code identifies an error class.
type Code string

const (
	CodeConfiguration Code = "CONFIGURATION"
	CodeNavigation    Code = "NAVIGATION"
	CodeExtraction    Code = "EXTRACTION"
	CodeTimeout       Code = "TIMEOUT"
)

// Sentinels for errors.Is matching by class.
var (
	ErrConfiguration = &Error{Code: CodeConfiguration}
	ErrNavigation    = &Error{Code: CodeNavigation}
	ErrExtraction    = &Error{Code: CodeExtraction}
	ErrTimeout       = &Error{Code: CodeTimeout}
)

// Error wraps an underlying error with its class.
type Error struct {
	Code       Code
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class(), e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Class(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Class returns the user-facing class name, e.g. "ConfigurationError".
func (e *Error) Class() string {
	switch e.Code {
	case CodeConfiguration:
		return "ConfigurationError"
	case CodeNavigation:
		return "NavigationError"
	case CodeExtraction:
		return "ExtractionError"
	case CodeTimeout:
		return "TimeoutError"
	}
	return "Error"
}

func New(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Underlying: err}
}

func Configuration(message string, err error) *Error {
	return New(CodeConfiguration, message, err)
}

func Navigation(message string, err error) *Error {
	return New(CodeNavigation, message, err)
}

func Extraction(message string, err error) *Error {
	return New(CodeExtraction, message, err)
}

func Timeout(message string, err error) *Error {
	return New(CodeTimeout, message, err)
}

// ClassOf returns the class name of the first *Error in err's chain, or
// "Error" when there is none.
func ClassOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Class()
	}
	return "Error"
}

// ExitCode maps an error to the process exit status used by the CLI.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if !errors.As(err, &e) {
		return 1
	}
	switch e.Code {
	case CodeConfiguration:
		return 2
	case CodeNavigation:
		return 3
	case CodeExtraction:
		return 4
	case CodeTimeout:
		return 5
	}
	return 1
}
