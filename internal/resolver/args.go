package resolver

import (
	"reflect"
	"strings"

	"versostat-graphql/internal/apperrors"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

const maxNameLength = 128

// GraphQL argument names.
const (
	argIDs           = "ids"
	argTeamNames     = "teamNames"
	argGameweekStart = "gameweekStart"
	argGameweekEnd   = "gameweekEnd"
)

type playersArgs struct {
	IDs []string `arg:"ids" validate:"omitempty,max=1000,dive,required,max=128"`
}

type teamsArgs struct {
	TeamNames []string `arg:"teamNames" validate:"omitempty,max=100,dive,required,max=128"`
}

type gameweekArgs struct {
	Start *int `arg:"gameweekStart" validate:"omitempty,min=1"`
	End   *int `arg:"gameweekEnd" validate:"omitempty,min=1"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("arg")
	})
	return v
}

func (r *Resolver) parsePlayersArgs(args map[string]interface{}) (playersArgs, error) {
	parsed := playersArgs{IDs: stringList(args[argIDs])}
	return parsed, r.validateArgs(parsed)
}

func (r *Resolver) parseTeamsArgs(args map[string]interface{}) (teamsArgs, error) {
	parsed := teamsArgs{TeamNames: stringList(args[argTeamNames])}
	return parsed, r.validateArgs(parsed)
}

func (r *Resolver) parseGameweekArgs(args map[string]interface{}) (gameweekArgs, error) {
	parsed := gameweekArgs{Start: optionalInt(args[argGameweekStart]), End: optionalInt(args[argGameweekEnd])}
	if err := r.validateArgs(parsed); err != nil {
		return parsed, err
	}
	if parsed.Start != nil && parsed.End != nil && *parsed.End < *parsed.Start {
		return parsed, apperrors.Validation(argGameweekEnd, "must not be less than gameweekStart (%d)", *parsed.Start)
	}
	return parsed, nil
}

// validateArgs converts the first validator failure into a ValidationError
// naming the GraphQL argument.
func (r *Resolver) validateArgs(args interface{}) error {
	err := r.validate.Struct(args)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.Wrap(err, "validate arguments")
	}
	fe := fieldErrs[0]
	argument := fe.Field()
	if i := strings.IndexByte(argument, '['); i > 0 {
		argument = argument[:i]
	}
	switch fe.Tag() {
	case "required":
		return apperrors.Validation(argument, "must not contain empty values")
	case "min":
		return apperrors.Validation(argument, "must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return apperrors.Validation(argument, "must contain at most %s values", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return apperrors.Validation(argument, "values must be at most %d characters", maxNameLength)
		}
		return apperrors.Validation(argument, "must be at most %s", fe.Param())
	default:
		return apperrors.Validation(argument, "failed %s validation", fe.Tag())
	}
}

// stringList returns nil when the argument was omitted or null, so callers
// can tell "no filter" from an empty filter.
func stringList(value interface{}) []string {
	raw, ok := value.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, _ := item.(string)
		out = append(out, s)
	}
	return out
}

func optionalInt(value interface{}) *int {
	v, ok := value.(int)
	if !ok {
		return nil
	}
	return &v
}
