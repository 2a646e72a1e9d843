package docrest

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

//IsNotFound returns whether the error cause is that something was not found
func IsNotFound(err error) bool {
	nfe, ok := errors.Cause(err).(NotFound)
	return ok && nfe.IsNotFound()
}

//NotFound is the interface that wraps the IsNotFound nethod
type NotFound interface {
	IsNotFound() bool
}

//IsForbidden returns whether the error cause is an access to a collection that is not exposed
func IsForbidden(err error) bool {
	fe, ok := errors.Cause(err).(Forbidden)
	return ok && fe.IsForbidden()
}

//Forbidden is the interface that wraps the IsForbidden method
type Forbidden interface {
	IsForbidden() bool
}

//IsBadRequest returns whether the error cause is that the provided inputs are incorrect
func IsBadRequest(err error) bool {
	nae, ok := errors.Cause(err).(BadRequest)
	return ok && nae.IsBadRequest()
}

//BadRequest is the interface that wraps the IsBadRequest method
type BadRequest interface {
	IsBadRequest() bool
}

//IsNotImplemented returns whether the error cause is that no view is bound to the request
func IsNotImplemented(err error) bool {
	nie, ok := errors.Cause(err).(NotImplemented)
	return ok && nie.IsNotImplemented()
}

//NotImplemented is the interface that wraps the IsNotImplemented method
type NotImplemented interface {
	IsNotImplemented() bool
}

//IsMethodNotAllowed returns whether the error cause is the use of a disabled method
func IsMethodNotAllowed(err error) bool {
	mna, ok := errors.Cause(err).(MethodNotAllowed)
	return ok && mna.IsMethodNotAllowed()
}

//MethodNotAllowed is the interface that wraps the IsMethodNotAllowed method
type MethodNotAllowed interface {
	IsMethodNotAllowed() bool
}

//statusCode maps an error to the HTTP status of its response
func statusCode(err error) int {
	switch {
	case IsForbidden(err):
		return http.StatusForbidden
	case IsNotFound(err):
		return http.StatusNotFound
	case IsNotImplemented(err):
		return http.StatusNotImplemented
	case IsMethodNotAllowed(err):
		return http.StatusMethodNotAllowed
	case IsBadRequest(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type badRequest string

func (err badRequest) IsBadRequest() bool {
	return true
}
func (err badRequest) Error() string {
	return string(err)
}

type forbiddenError struct {
	Collection string
}

func (err forbiddenError) Error() string {
	return fmt.Sprintf("Forbidden: collection '%s' is not exposed", err.Collection)
}

func (err forbiddenError) IsForbidden() bool {
	return true
}

type notFoundError struct {
	Target string
}

func (err notFoundError) Error() string {
	return fmt.Sprintf("Document not found: '%s'", err.Target)
}

func (err notFoundError) IsNotFound() bool {
	return true
}

type notImplementedError struct {
	Method string
	Path   string
}

func (err notImplementedError) Error() string {
	return fmt.Sprintf("Not implemented: %s %s", err.Method, err.Path)
}

func (err notImplementedError) IsNotImplemented() bool {
	return true
}

type methodNotAllowedError string

func (err methodNotAllowedError) Error() string {
	return fmt.Sprintf("Method not allowed: %s", string(err))
}

func (err methodNotAllowedError) IsMethodNotAllowed() bool {
	return true
}

//verificationFailed is the rejection of a create payload. It is rendered with
//its own body rather than the error envelope.
type verificationFailed struct {
	Collection string
}

func (err verificationFailed) Error() string {
	return "unverified json request"
}

func (err verificationFailed) IsBadRequest() bool {
	return true
}

func isVerificationFailed(err error) bool {
	_, ok := errors.Cause(err).(verificationFailed)
	return ok
}
