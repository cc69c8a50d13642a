package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

// Sentinels for errors.Is checks across layers.
var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrDeletionFailed = errors.New("deletion failed")
)

// HTTPStatuser is implemented by errors that map onto a specific response code.
type HTTPStatuser interface {
	HTTPStatus() int
}

type NotFoundError struct {
	Entity string
	Id     string
}

func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, Id: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Id)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
func (e *NotFoundError) HTTPStatus() int      { return http.StatusNotFound }

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *ValidationError) HTTPStatus() int      { return http.StatusBadRequest }

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string        { return e.Message }
func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }
func (e *ForbiddenError) HTTPStatus() int      { return http.StatusForbidden }

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string        { return e.Message }
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
func (e *ConflictError) HTTPStatus() int      { return http.StatusConflict }

// Deletion steps reported by DeletionFailedError.
const (
	StepLoad              = "load"
	StepDiscover          = "discover"
	StepDelete            = "delete"
	StepRepairAuthors     = "repair-authors"
	StepRepairCommunities = "repair-communities"
	StepRepairChildren    = "repair-children"
	StepCommit            = "commit"
)

// DeletionFailedError means a store operation failed partway through a cascading
// delete. The deletion may have been partially applied; re-running it is safe.
type DeletionFailedError struct {
	ConvoId string
	Step    string
	Err     error
}

func (e *DeletionFailedError) Error() string {
	return fmt.Sprintf("delete convo %s failed at %s: %v", e.ConvoId, e.Step, e.Err)
}

func (e *DeletionFailedError) Unwrap() error        { return e.Err }
func (e *DeletionFailedError) Is(target error) bool { return target == ErrDeletionFailed }
func (e *DeletionFailedError) HTTPStatus() int      { return http.StatusInternalServerError }
