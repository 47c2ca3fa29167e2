package app

import (
	"errors"
	"fmt"
	"net/http"

	"seedhttpd/api/internal/cob"
	"seedhttpd/api/internal/gitrepo"
	"seedhttpd/api/internal/identity"
)

type DomainError struct {
	Status  int
	Message string
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func domainError(status int, message string) *DomainError {
	return &DomainError{Status: status, Message: message}
}

var errNotFound = domainError(http.StatusNotFound, "Not found")

// mapError maps an error to its HTTP status and user facing message. Store
// failures without a known cause collapse into a generic 500.
func mapError(err error) (status int, message string) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Message
	}
	if errors.Is(err, gitrepo.ErrNotFound) || errors.Is(err, cob.ErrNotFound) {
		return http.StatusNotFound, "Not found"
	}
	if errors.Is(err, identity.ErrInvalid) || errors.Is(err, gitrepo.ErrInvalidRef) {
		return http.StatusBadRequest, "Bad request"
	}
	return http.StatusInternalServerError, "Internal error"
}
