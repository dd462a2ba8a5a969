package golestan

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Category is a stable machine-readable failure class. callers branch on it,
// so values never change once introduced.
type Category string

const (
	// tls/certificate failure, refused connection or request timeout.
	// recoverable only by retrying the whole operation later.
	CategoryConnectionError Category = "CONNECTION_ERROR"
	// an http-level failure (non-2xx) that is not connection related.
	CategoryRemoteServiceError Category = "REMOTE_SERVICE_ERROR"
	// a transport failure matching none of the other classifications.
	CategoryUnknownError Category = "UNKNOWN_ERROR"
	// a response lacked the mandatory hidden-state tokens, meaning the
	// session is no longer on the page we think it is. fatal for the call.
	CategoryMissingFormState Category = "MISSING_FORM_STATE"
	// the captcha/credential loop exhausted its attempts without
	// acquiring the post-login cookies.
	CategoryLoginFailed Category = "LOGIN_FAILED"
	// the solver produced an empty string. surfaces per-attempt only,
	// the auth loop treats it as one failed attempt.
	CategoryEmptyCaptchaResult Category = "EMPTY_CAPTCHA_RESULT"
)

type Error struct {
	Category Category
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Category, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(category Category, message string) *Error {
	return &Error{Category: category, Message: message}
}

func wrapError(category Category, message string, cause error) *Error {
	return &Error{Category: category, Message: message, Cause: cause}
}

// CategoryOf extracts the failure class of an error returned by this
// package, or "" for foreign errors.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// classifyTransportError sorts a resty/net error into the taxonomy. the
// distinction matters to callers: connection-class failures are worth
// retrying later, everything else likely is not.
func classifyTransportError(err error) *Error {
	if isConnectionError(err) {
		return wrapError(CategoryConnectionError, "request failed", err)
	}
	return wrapError(CategoryUnknownError, "request failed", err)
}

func isConnectionError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var certInvalid x509.CertificateInvalidError
	var recordHeader tls.RecordHeaderError
	var certVerification *tls.CertificateVerificationError
	if errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &certInvalid) ||
		errors.As(err, &recordHeader) ||
		errors.As(err, &certVerification) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
