// Package broker talks to the brokerage's REST API: token lifecycle (C3),
// rate-limited transport (C4), and the typed adapter surface (C5).
package broker

import "fmt"

// Kind classifies a broker error so callers (mainly the buy/sell loop and
// the scheduler) can decide whether to retry, skip a tick, or alert.
type Kind string

const (
	KindNetwork        Kind = "network"
	KindHTTPStatus     Kind = "http_status"
	KindDecode         Kind = "decode"
	KindRateExceeded   Kind = "rate_exceeded"
	KindTokenFailure   Kind = "token_failure"
	KindBrokerReject   Kind = "broker_reject"
	KindDataMissing    Kind = "data_missing"
	KindArgumentInvalid Kind = "argument_invalid"
)

// Error is the single error type every broker-facing call returns,
// wrapping the underlying cause while keeping it classifiable by Kind.
type Error struct {
	Kind Kind
	Op   string // e.g. "SpotQuote", "PlaceOrder"
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("broker: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("broker: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// IsKind reports whether err is a *Error of the given kind, unwrapping as
// needed.
func IsKind(err error, kind Kind) bool {
	var be *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			be = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return be != nil && be.Kind == kind
}
