package api

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const serverMessageKey = "server_message"

func responseError(status int, message string) error {
	message = strings.TrimSpace(message)
	fromServer := message != ""
	if !fromServer {
		message = "api: request failed with status " + http.StatusText(status)
	}
	category := goerrors.CategoryExternal
	textCode := "API_ERROR"
	switch status {
	case http.StatusUnauthorized:
		category, textCode = goerrors.CategoryAuth, "UNAUTHENTICATED"
	case http.StatusForbidden:
		category, textCode = goerrors.CategoryAuthz, "ACCESS_DENIED"
	case http.StatusNotFound:
		category, textCode = goerrors.CategoryNotFound, "NOT_FOUND"
	}
	return goerrors.New(message, category).
		WithCode(status).
		WithTextCode(textCode).
		WithMetadata(map[string]any{serverMessageKey: fromServer})
}

// MessageFrom returns the server-provided message carried by err verbatim,
// or fallback when the server gave none.
func MessageFrom(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		if fromServer, _ := rich.Metadata[serverMessageKey].(bool); fromServer {
			return rich.Message
		}
	}
	return fallback
}

// StatusFrom returns the HTTP status recorded on an API error, or 0.
func StatusFrom(err error) int {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Code
	}
	return 0
}
