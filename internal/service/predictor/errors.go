package predictor

import (
	"context"
	"errors"
	"fmt"
	"net"

	xhttp "FinCast/pkg/http"
)

// ErrorKind classifies backend failures.
type ErrorKind string

const (
	KindHTTPStatus      ErrorKind = "http_status"
	KindUnreachable     ErrorKind = "unreachable"
	KindTimeout         ErrorKind = "timeout"
	KindInvalidResponse ErrorKind = "invalid_response"
)

// NetworkError is returned by every Client method that reached for the backend and failed.
type NetworkError struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int    // KindHTTPStatus only
	Body       string // KindHTTPStatus only
	Err        error
}

func (e *NetworkError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		if e.Body == "" {
			return fmt.Sprintf("HTTP %d", e.StatusCode)
		}
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	case KindTimeout:
		return fmt.Sprintf("%s request timed out", e.Endpoint)
	case KindInvalidResponse:
		return fmt.Sprintf("%s returned an invalid response: %v", e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("backend unreachable: %v", e.Err)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// KindOf returns the NetworkError kind of err, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Kind
	}
	return ""
}

// classify maps transport errors onto NetworkError. Cancellation by the
// caller is passed through untouched so callers can tell it apart.
func classify(endpoint string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return &NetworkError{Kind: KindHTTPStatus, Endpoint: endpoint, StatusCode: se.StatusCode, Body: se.Body, Err: err}
	}
	var de *xhttp.DecodeError
	if errors.As(err, &de) {
		return &NetworkError{Kind: KindInvalidResponse, Endpoint: endpoint, Err: err}
	}
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return &NetworkError{Kind: KindTimeout, Endpoint: endpoint, Err: err}
	}
	return &NetworkError{Kind: KindUnreachable, Endpoint: endpoint, Err: err}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if k := KindOf(err); k != "" {
		return string(k)
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "error"
}
