package apperrors

// GraphQLError is the value resolvers return to graphql-go. It carries a
// client-safe message and an extensions code while keeping the cause for
// logging.
type GraphQLError struct {
	message string
	code    string
	cause   error
}

// ForGraphQL converts err into a GraphQLError. Data source failures are
// replaced by a generic message so connection details never reach clients.
func ForGraphQL(err error) error {
	if err == nil {
		return nil
	}
	if gqlErr, ok := err.(*GraphQLError); ok {
		return gqlErr
	}

	code := Code(err)
	message := err.Error()
	switch code {
	case CodeDataSource:
		message = "data source unavailable"
	case CodeInternal:
		message = "internal error"
	}
	return &GraphQLError{message: message, code: code, cause: err}
}

func (e *GraphQLError) Error() string { return e.message }

// Unwrap exposes the classified cause.
func (e *GraphQLError) Unwrap() error { return e.cause }

// Code returns the extensions code.
func (e *GraphQLError) Code() string { return e.code }

// Extensions implements graphql-go's gqlerrors.ExtendedError.
func (e *GraphQLError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}
