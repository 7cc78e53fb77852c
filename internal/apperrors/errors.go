// Package apperrors defines the error taxonomy surfaced by the GraphQL API.
//
// Errors are classified with cockroachdb/errors marks so the original cause
// survives wrapping while callers can still ask which class an error is in.
package apperrors

import (
	"github.com/cockroachdb/errors"
)

// Codes rendered under extensions.code in GraphQL error responses.
const (
	CodeDataSource   = "DATA_SOURCE_ERROR"
	CodeMalformedRow = "MALFORMED_ROW"
	CodeValidation   = "VALIDATION_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
)

var (
	// ErrDataSource marks failures of the underlying store: query errors,
	// connection acquisition timeouts, closed pools.
	ErrDataSource = errors.New("data source error")
	// ErrMalformedRow marks rows that violate an expected shape or invariant.
	ErrMalformedRow = errors.New("malformed row")
	// ErrValidation marks malformed GraphQL arguments.
	ErrValidation = errors.New("validation error")
)

// DataSource wraps err as a DataSourceError with an operation description.
func DataSource(err error, op string) error {
	if err == nil {
		return nil
	}
	if IsDataSource(err) {
		return errors.Wrap(err, op)
	}
	return errors.Mark(errors.Wrap(err, op), ErrDataSource)
}

// MalformedRow builds a MalformedRowError for the named view.
func MalformedRow(view string, format string, args ...interface{}) error {
	return errors.Mark(
		errors.Wrapf(errors.Newf(format, args...), "malformed row in %s", view),
		ErrMalformedRow,
	)
}

// Validation builds a ValidationError for a GraphQL argument.
func Validation(argument string, format string, args ...interface{}) error {
	return errors.Mark(
		errors.Wrapf(errors.Newf(format, args...), "invalid argument %q", argument),
		ErrValidation,
	)
}

// IsDataSource reports whether err is classified as a DataSourceError.
func IsDataSource(err error) bool { return errors.Is(err, ErrDataSource) }

// IsMalformedRow reports whether err is classified as a MalformedRowError.
func IsMalformedRow(err error) bool { return errors.Is(err, ErrMalformedRow) }

// IsValidation reports whether err is classified as a ValidationError.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// Code returns the extensions code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return CodeValidation
	case IsMalformedRow(err):
		return CodeMalformedRow
	case IsDataSource(err):
		return CodeDataSource
	default:
		return CodeInternal
	}
}

// Internalf builds an unclassified error. It is reported to clients as an
// internal error.
func Internalf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}
