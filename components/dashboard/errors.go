package dashboard

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

var (
	// ErrAccessDenied is returned when an identity matches no configuration.
	ErrAccessDenied = goerrors.New("dashboard: access restricted", goerrors.CategoryAuthz).
			WithTextCode("ACCESS_DENIED")
	// ErrUnknownEntry is returned when a menu key is not in the configuration.
	ErrUnknownEntry = goerrors.New("dashboard: unknown menu entry", goerrors.CategoryNotFound).
			WithTextCode("UNKNOWN_ENTRY")
	// ErrUnsupportedAction is returned when a unit does not implement an action.
	ErrUnsupportedAction = goerrors.New("dashboard: action not supported by unit", goerrors.CategoryBadInput).
				WithTextCode("UNSUPPORTED_ACTION")

	ErrUnknownUnitKind = errors.New("dashboard: unknown unit kind")

	errMissingAPI      = errors.New("dashboard: records api not configured")
	errMissingResource = errors.New("dashboard: unit resource is required")
	errMissingRecordID = errors.New("dashboard: record id is required")
)

// StatusFor maps an error to the HTTP status transports should answer with.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, session.ErrUnauthenticated), errors.Is(err, session.ErrExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAccessDenied), goerrors.IsCategory(err, goerrors.CategoryAuthz):
		return http.StatusForbidden
	case goerrors.IsAuth(err):
		return http.StatusUnauthorized
	case goerrors.IsValidation(err), goerrors.IsCategory(err, goerrors.CategoryBadInput),
		errors.Is(err, errMissingRecordID):
		return http.StatusBadRequest
	case goerrors.IsNotFound(err):
		return http.StatusNotFound
	case goerrors.IsCategory(err, goerrors.CategoryExternal):
		if status := api.StatusFrom(err); status >= 400 && status < 500 {
			return status
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// IsAuthError reports whether err should send the caller to the login page.
func IsAuthError(err error) bool {
	return errors.Is(err, session.ErrUnauthenticated) || errors.Is(err, session.ErrExpired)
}

// MessageFor returns a message fit for a flash notification.
func MessageFor(err error) string {
	if err == nil {
		return ""
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Category == goerrors.CategoryValidation {
		return "Please correct the highlighted fields."
	}
	return api.MessageFrom(err, genericErrorMessage)
}

const genericErrorMessage = "Something went wrong. Please try again."

// ErrorResponse is the JSON body transports answer failures with.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ResponseFor builds the JSON error body for err.
func ResponseFor(err error) ErrorResponse {
	resp := ErrorResponse{Error: MessageFor(err)}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return resp
	}
	resp.Code = rich.TextCode
	for _, fe := range rich.ValidationErrors {
		if resp.Fields == nil {
			resp.Fields = map[string]string{}
		}
		resp.Fields[fe.Field] = fe.Message
	}
	return resp
}
