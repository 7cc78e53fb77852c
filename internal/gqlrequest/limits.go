package gqlrequest

import (
	"github.com/cockroachdb/errors"
)

// Limits bounds the shape of operations the server will execute. Zero
// values disable a check.
type Limits struct {
	MaxDepth  int
	MaxFields int
}

// ErrLimitExceeded marks operations rejected by Limits.
var ErrLimitExceeded = errors.New("query limit exceeded")

// CheckLimits rejects an analyzed operation whose selection depth or field
// count exceeds l. Unparsed requests pass; the executor reports their errors.
func (a *Analysis) CheckLimits(l Limits) error {
	if a == nil || a.Operation == nil {
		return nil
	}
	if l.MaxDepth > 0 && a.SelectionDepth > l.MaxDepth {
		return errors.Mark(
			errors.Newf("query depth %d exceeds maximum of %d", a.SelectionDepth, l.MaxDepth),
			ErrLimitExceeded,
		)
	}
	if l.MaxFields > 0 && a.FieldCount > l.MaxFields {
		return errors.Mark(
			errors.Newf("query selects %d fields, maximum is %d", a.FieldCount, l.MaxFields),
			ErrLimitExceeded,
		)
	}
	return nil
}
