package rln

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed daemon call. The set is closed so callers
// can drive control flow (retry, re-prompt, relock) off the kind alone
// without string matching.
type ErrorKind uint8

const (
	// KindUnknown is any daemon error string not recognized by the
	// mapping table. The raw message is preserved on the Error.
	KindUnknown ErrorKind = iota

	// KindTransport is a network level failure before any HTTP status
	// was received, such as a refused connection or a reset.
	KindTransport

	// KindTimeout is a request that exceeded its deadline.
	KindTimeout

	// KindDecode is a response body that could not be decoded into the
	// expected shape, including missing required fields.
	KindDecode

	// KindNodeLocked is returned when an operation needs an unlocked
	// node but the node is locked.
	KindNodeLocked

	// KindNodeUnlocked is returned when an operation needs a locked
	// node but the node is unlocked.
	KindNodeUnlocked

	// KindNotInitialized means the node wallet has not been created yet.
	KindNotInitialized

	// KindAlreadyInitialized means init was called on a node that
	// already has a wallet.
	KindAlreadyInitialized

	// KindWrongPassword is an unlock or changepassword attempt with a
	// bad password.
	KindWrongPassword

	// KindNoAvailableUtxos means the node has no uncolored UTXOs left
	// for the requested operation.
	KindNoAvailableUtxos

	// KindFeeRateTooLow is a rejected fee rate.
	KindFeeRateTooLow

	// KindInsufficientFunds is an operation the on-chain balance cannot
	// cover.
	KindInsufficientFunds

	// KindChangingState means the node is busy transitioning between
	// locked and unlocked and cannot serve other calls.
	KindChangingState

	// KindNetworkMismatch means the daemon is running on a different
	// bitcoin network than this wallet was built for.
	KindNetworkMismatch

	// KindKeyringUnavailable is a local failure to reach the OS keyring.
	KindKeyringUnavailable

	// KindSupervisorFailed is a failure to start or stop the node
	// process itself.
	KindSupervisorFailed

	// KindCacheIO is a local cache read or write failure.
	KindCacheIO
)

// String returns a stable name for the kind, used in logs.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindDecode:
		return "decode"
	case KindNodeLocked:
		return "node_locked"
	case KindNodeUnlocked:
		return "node_unlocked"
	case KindNotInitialized:
		return "not_initialized"
	case KindAlreadyInitialized:
		return "already_initialized"
	case KindWrongPassword:
		return "wrong_password"
	case KindNoAvailableUtxos:
		return "no_available_utxos"
	case KindFeeRateTooLow:
		return "fee_rate_too_low"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindChangingState:
		return "changing_state"
	case KindNetworkMismatch:
		return "network_mismatch"
	case KindKeyringUnavailable:
		return "keyring_unavailable"
	case KindSupervisorFailed:
		return "supervisor_failed"
	case KindCacheIO:
		return "cache_io"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every Client method. Status is the
// HTTP status code when one was received, zero otherwise.
type Error struct {
	Kind   ErrorKind
	Msg    string
	Status int

	// Err is the underlying error for transport, timeout and decode
	// failures.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("rln: %s: %s", e.Kind, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("rln: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("rln: %s", e.Kind)
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Kind extracts the ErrorKind from err. Errors not produced by this package
// report KindUnknown.
func Kind(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Daemon error strings. These are matched verbatim against the error field
// of 4xx/5xx response bodies.
const (
	msgNodeLocked         = "Node is locked (hint: call unlock)"
	msgNodeUnlocked       = "Node is unlocked (hint: call lock)"
	msgNotInitialized     = "Wallet has not been initialized (hint: call init)"
	msgAlreadyInitialized = "Node has already been initialized"
	msgWrongPassword      = "The provided password is incorrect"
	msgNoAvailableUtxos   = "No uncolored UTXOs are available (hint: call createutxos)"
	msgChangingState      = "Cannot call other APIs while node is changing state"
	msgNetworkMismatch    = "Network configuration does not match."
)

// errorKinds maps the daemon's exact error strings to their kinds.
var errorKinds = map[string]ErrorKind{
	msgNodeLocked:         KindNodeLocked,
	msgNodeUnlocked:       KindNodeUnlocked,
	msgNotInitialized:     KindNotInitialized,
	msgAlreadyInitialized: KindAlreadyInitialized,
	msgWrongPassword:      KindWrongPassword,
	msgNoAvailableUtxos:   KindNoAvailableUtxos,
	msgChangingState:      KindChangingState,
	msgNetworkMismatch:    KindNetworkMismatch,
}

// errorPrefixKinds catches daemon errors whose message embeds details after
// a fixed prefix.
var errorPrefixKinds = []struct {
	prefix string
	kind   ErrorKind
}{
	{"Invalid fee rate", KindFeeRateTooLow},
	{"Fee rate too low", KindFeeRateTooLow},
	{"Insufficient funds", KindInsufficientFunds},
	{"InsufficientFunds", KindInsufficientFunds},
	{"Not enough funds", KindInsufficientFunds},
}

// classify maps a daemon error string to its kind. Unrecognized strings map
// to KindUnknown with the message preserved.
func classify(msg string) ErrorKind {
	if kind, ok := errorKinds[msg]; ok {
		return kind
	}
	for _, p := range errorPrefixKinds {
		if strings.HasPrefix(msg, p.prefix) {
			return p.kind
		}
	}
	return KindUnknown
}

// newDaemonError builds the Error for a non-2xx daemon response.
func newDaemonError(status int, msg string) *Error {
	return &Error{
		Kind:   classify(msg),
		Msg:    msg,
		Status: status,
	}
}
