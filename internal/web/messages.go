package web

// messages.go maps technical errors to user-facing messages with support
// codes, in the same spirit as a support runbook: the operator sees the
// message and action, support staff look up the code.
//
// # Field Errors (FLD001-FLD099)
//
//	FLD001 - Invalid field id: The field id is empty or too long
//	         Action: Use a field id of at most 128 characters
//	FLD002 - Corrupt data: The stored change orders could not be read
//	         Action: Contact an administrator before adding change orders
//	FLD003 - Store unavailable: The field could not be loaded or saved
//	         Action: Please try again in a few moments
//	FLD004 - Timeout: The field store did not answer in time
//	         Action: Please try again
//	FLD005 - Field not found: Nothing has been saved under this id
//	         Action: Open the field in the editor to create it
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found: The editor session expired or was closed
//	         Action: Open the field again
//	SES002 - System busy: Too many editors are open
//	         Action: Close unused editors or wait a moment
//	SES003 - Session closed: The editor was torn down
//	         Action: Open the field again
//
// # Row Errors (ROW001-ROW099)
//
//	ROW001 - Row not found: The change order is no longer on the page
//	         Action: Reload the editor
//	ROW002 - Invalid input: The submitted value could not be read
//	         Action: Pick a status from the list
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Rate limited: Too many requests from this client
//	         Action: Wait for the Retry-After interval and try again
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/changeorders/internal/changeorder"
	"github.com/JonMunkholm/changeorders/internal/fieldstore"
	"github.com/JonMunkholm/changeorders/internal/host"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errInvalidInput marks form values the handlers could not parse.
var errInvalidInput = errors.New("invalid input")

// errorRule matches an error either by identity (errors.Is) or, for errors
// that come back from drivers as plain text, by a case-insensitive substring.
// The first matching rule wins.
type errorRule struct {
	target  error
	pattern string
	status  int
	msg     UserMessage
}

var errorRules = []errorRule{
	{
		target: fieldstore.ErrInvalidFieldID,
		status: http.StatusBadRequest,
		msg: UserMessage{
			Message: "The field id is empty or too long",
			Action:  "Use a field id of at most 128 characters",
			Code:    "FLD001",
		},
	},
	{
		target: changeorder.ErrAddDisabled,
		status: http.StatusConflict,
		msg: UserMessage{
			Message: "The stored change orders could not be read",
			Action:  "Contact an administrator before adding change orders",
			Code:    "FLD002",
		},
	},
	{
		target: context.DeadlineExceeded,
		status: http.StatusGatewayTimeout,
		msg: UserMessage{
			Message: "The field store did not answer in time",
			Action:  "Please try again",
			Code:    "FLD004",
		},
	},
	{
		target: errFieldNotFound,
		status: http.StatusNotFound,
		msg: UserMessage{
			Message: "Nothing has been saved under this field id",
			Action:  "Open the field in the editor to create it",
			Code:    "FLD005",
		},
	},
	{
		pattern: "load field",
		status:  http.StatusServiceUnavailable,
		msg: UserMessage{
			Message: "The field could not be loaded",
			Action:  "Please try again in a few moments",
			Code:    "FLD003",
		},
	},
	{
		pattern: "connection refused",
		status:  http.StatusServiceUnavailable,
		msg: UserMessage{
			Message: "The field store is unavailable",
			Action:  "Please try again in a few moments",
			Code:    "FLD003",
		},
	},
	{
		target: host.ErrSessionNotFound,
		status: http.StatusNotFound,
		msg: UserMessage{
			Message: "The editor session expired or was closed",
			Action:  "Open the field again",
			Code:    "SES001",
		},
	},
	{
		target: host.ErrTooManySessions,
		status: http.StatusServiceUnavailable,
		msg: UserMessage{
			Message: "Too many editors are open",
			Action:  "Close unused editors or wait a moment",
			Code:    "SES002",
		},
	},
	{
		target: changeorder.ErrNotInitialized,
		status: http.StatusGone,
		msg: UserMessage{
			Message: "The editor was closed",
			Action:  "Open the field again",
			Code:    "SES003",
		},
	},
	{
		target: changeorder.ErrTornDown,
		status: http.StatusGone,
		msg: UserMessage{
			Message: "The editor was closed",
			Action:  "Open the field again",
			Code:    "SES003",
		},
	},
	{
		target: errRowNotFound,
		status: http.StatusNotFound,
		msg: UserMessage{
			Message: "The change order is no longer on the page",
			Action:  "Reload the editor",
			Code:    "ROW001",
		},
	},
	{
		target: changeorder.ErrUnknownRow,
		status: http.StatusNotFound,
		msg: UserMessage{
			Message: "The change order is no longer on the page",
			Action:  "Reload the editor",
			Code:    "ROW001",
		},
	},
	{
		target: errInvalidInput,
		status: http.StatusBadRequest,
		msg: UserMessage{
			Message: "The submitted value could not be read",
			Action:  "Pick a status from the list",
			Code:    "ROW002",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. A nil
// error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	msg, _ := classify(err)
	return msg
}

// StatusFor returns the HTTP status code matching err.
func StatusFor(err error) int {
	_, status := classify(err)
	return status
}

func classify(err error) (UserMessage, int) {
	if err == nil {
		return UserMessage{}, http.StatusOK
	}

	text := strings.ToLower(err.Error())
	for _, rule := range errorRules {
		if rule.target != nil && errors.Is(err, rule.target) {
			return rule.msg, rule.status
		}
		if rule.pattern != "" && strings.Contains(text, rule.pattern) {
			return rule.msg, rule.status
		}
	}
	return defaultMessage, http.StatusInternalServerError
}
