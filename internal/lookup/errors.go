package lookup

import (
	"errors"
	"fmt"
)

// AuthError indicates that the lookup token was rejected. It is returned
// when the API answers 401.
type AuthError struct {
	Host    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Host, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// APIError is a non-success response carrying the API's message.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github API error (%d) on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Message)
}
