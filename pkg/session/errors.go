package session

import (
	"fmt"
	"strings"
)

// ErrorKind classifies session failures.
type ErrorKind string

const (
	KindAdapterUnavailable            ErrorKind = "adapter unavailable"
	KindDiscoveryStartFailed          ErrorKind = "discovery start failed"
	KindConnectFailed                 ErrorKind = "connect failed"
	KindConnectTimeout                ErrorKind = "connect timeout"
	KindConnectInProgress             ErrorKind = "connect in progress"
	KindServiceDiscoveryFailed        ErrorKind = "service discovery failed"
	KindCharacteristicDiscoveryFailed ErrorKind = "characteristic discovery failed"
	KindReadFailed                    ErrorKind = "read failed"
	KindWriteFailed                   ErrorKind = "write failed"
	KindSubscribeFailed               ErrorKind = "subscribe failed"
	KindUnsubscribeFailed             ErrorKind = "unsubscribe failed"
	KindNotReady                      ErrorKind = "not ready"
	KindClosed                        ErrorKind = "session closed"
)

// Error is returned by every failing session operation. The platform cause, if any,
// is reachable through errors.Unwrap.
type Error struct {
	Kind     ErrorKind
	DeviceID string
	UUIDs    []string // service and/or characteristic the operation targeted
	Err      error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.DeviceID != "" {
		fmt.Fprintf(&b, " (device %q)", e.DeviceID)
	}
	if len(e.UUIDs) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.UUIDs, "/"))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is allows errors.Is to compare Error values by Kind
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrAdapterUnavailable            = &Error{Kind: KindAdapterUnavailable}
	ErrDiscoveryStartFailed          = &Error{Kind: KindDiscoveryStartFailed}
	ErrConnectFailed                 = &Error{Kind: KindConnectFailed}
	ErrConnectTimeout                = &Error{Kind: KindConnectTimeout}
	ErrConnectInProgress             = &Error{Kind: KindConnectInProgress}
	ErrServiceDiscoveryFailed        = &Error{Kind: KindServiceDiscoveryFailed}
	ErrCharacteristicDiscoveryFailed = &Error{Kind: KindCharacteristicDiscoveryFailed}
	ErrReadFailed                    = &Error{Kind: KindReadFailed}
	ErrWriteFailed                   = &Error{Kind: KindWriteFailed}
	ErrSubscribeFailed               = &Error{Kind: KindSubscribeFailed}
	ErrUnsubscribeFailed             = &Error{Kind: KindUnsubscribeFailed}
	ErrNotReady                      = &Error{Kind: KindNotReady}
	ErrClosed                        = &Error{Kind: KindClosed}
)

func newError(kind ErrorKind, deviceID string, err error, uuids ...string) *Error {
	return &Error{Kind: kind, DeviceID: deviceID, UUIDs: uuids, Err: err}
}
