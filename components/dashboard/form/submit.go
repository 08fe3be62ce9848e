package form

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

// GenericErrorMessage is surfaced when the server gives no message.
const GenericErrorMessage = "Something went wrong. Please try again."

var ErrNoSubmitter = errors.New("form: submitter not configured")

// Submitter sends the serialized payload. *api.Client satisfies it.
type Submitter interface {
	Submit(ctx context.Context, method, endpoint string, payload map[string]any) (map[string]any, error)
}

// Form renders, validates and submits a set of fields.
type Form struct {
	Fields    []Field
	Endpoint  string
	Method    string
	Initial   Values
	Submitter Submitter

	OnSuccess func(response map[string]any)
	OnError   func(message string)
	OnCancel  func()
}

// Result is the local state after a submit attempt.
type Result struct {
	Submitted bool
	Errors    Errors
	Response  map[string]any
	Message   string
}

// Submit validates values and, when valid, issues exactly one request. The
// form itself never touches external state beyond its callbacks.
func (f *Form) Submit(ctx context.Context, values Values) (Result, error) {
	merged := f.Merge(values)
	if errs := f.Validate(merged); errs.Has() {
		return Result{Errors: errs}, f.ValidationError(errs)
	}
	if f.Submitter == nil {
		return Result{}, ErrNoSubmitter
	}
	response, err := f.Submitter.Submit(ctx, f.method(), f.Endpoint, f.Payload(merged))
	if err != nil {
		message := api.MessageFrom(err, GenericErrorMessage)
		if f.OnError != nil {
			f.OnError(message)
		}
		return Result{Submitted: true, Message: message}, err
	}
	if f.OnSuccess != nil {
		f.OnSuccess(response)
	}
	return Result{Submitted: true, Response: response}, nil
}

// Cancel invokes the cancel callback.
func (f *Form) Cancel() {
	if f.OnCancel != nil {
		f.OnCancel()
	}
}

func (f *Form) method() string {
	if f.Method == "" {
		return http.MethodPost
	}
	return strings.ToUpper(f.Method)
}
