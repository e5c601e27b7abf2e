package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewInvalidTransition rejects a lifecycle command not allowed from the
// ticket's current status. Carries the attempted (from, command) pair.
func NewInvalidTransition(from, command string) error {
	return NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("command %s not allowed from status %s", command, from),
		http.StatusUnprocessableEntity,
		map[string]any{"from": from, "command": command})
}

// NewConcurrentModification signals that a conditional commit found the
// ticket in a different state than expected. Callers retry once with fresh
// state before surfacing it.
func NewConcurrentModification(ticketID string) error {
	return NewDomainError("CONCURRENT_MODIFICATION",
		"ticket was modified concurrently",
		http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

// NewChatClosed rejects a chat message on a ticket that is no longer open.
func NewChatClosed(ticketID string) error {
	return NewDomainError("CHAT_CLOSED",
		"chat is closed for this ticket",
		http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

// NewStorageUnavailable wraps a transient backend failure. Safe to retry
// with backoff on the caller side.
func NewStorageUnavailable(err error) error {
	return &DomainError{
		Code:       "STORAGE_UNAVAILABLE",
		Message:    "storage backend unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// IsCode reports whether err is a DomainError carrying the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
