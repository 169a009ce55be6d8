package gateway

import (
	"errors"
	"fmt"

	"affconsole/internal/i18n"
)

// Kind classifies every failure the gateway reports.
type Kind string

const (
	KindNetwork        Kind = "network_unavailable"
	KindTimeout        Kind = "timeout"
	KindUnauthorized   Kind = "unauthorized"
	KindSessionExpired Kind = "session_expired"
	KindForbidden      Kind = "forbidden"
	KindNotFound       Kind = "not_found"
	KindRateLimited    Kind = "rate_limited"
	KindServer         Kind = "server_error"
	KindMisconfigured  Kind = "server_misconfigured"
	KindValidation     Kind = "validation_failed"
	KindHTTP           Kind = "http_error"
)

// Error carries a technical message for logs and a localized message for
// display. errors.Is matches any two errors of the same Kind, so callers test
// against the sentinels below.
type Error struct {
	Kind        Kind
	Status      int
	Message     string
	UserMessage string
	Err         error
}

var (
	ErrNetwork        = &Error{Kind: KindNetwork}
	ErrTimeout        = &Error{Kind: KindTimeout}
	ErrUnauthorized   = &Error{Kind: KindUnauthorized}
	ErrSessionExpired = &Error{Kind: KindSessionExpired}
	ErrForbidden      = &Error{Kind: KindForbidden}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrRateLimited    = &Error{Kind: KindRateLimited}
	ErrServer         = &Error{Kind: KindServer}
	ErrMisconfigured  = &Error{Kind: KindMisconfigured}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrHTTP           = &Error{Kind: KindHTTP}
)

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("gateway: %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("gateway: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of a gateway error, or "" for any other error.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return ""
}

// UserMessage returns the text to show for err.
func UserMessage(err error) string {
	var gerr *Error
	if errors.As(err, &gerr) && gerr.UserMessage != "" {
		return gerr.UserMessage
	}
	return err.Error()
}

func newError(msgs *i18n.Localizer, kind Kind, status int, message string, cause error) *Error {
	return &Error{
		Kind:        kind,
		Status:      status,
		Message:     message,
		UserMessage: userMessage(msgs, kind, message),
		Err:         cause,
	}
}

func userMessage(msgs *i18n.Localizer, kind Kind, message string) string {
	switch kind {
	case KindNetwork:
		return msgs.T("error.network")
	case KindTimeout:
		return msgs.T("error.timeout")
	case KindUnauthorized:
		return msgs.T("auth.invalidCredentials")
	case KindSessionExpired:
		return msgs.T("auth.sessionExpired")
	case KindForbidden:
		return msgs.T("error.forbidden")
	case KindNotFound:
		return msgs.T("error.notFound")
	case KindRateLimited:
		return msgs.T("error.rateLimited")
	case KindServer:
		return msgs.T("error.server")
	case KindMisconfigured:
		return msgs.T("error.misconfigured")
	case KindValidation:
		return msgs.T("error.validation", message)
	default:
		return msgs.T("error.http", message)
	}
}
