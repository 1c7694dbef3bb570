package errs

import "errors"

// Kind classifies an error for propagation policy decisions. It never
// replaces Go's error chains — Kind is attached via Wrap and recovered
// via As, so callers still use errors.Is/errors.As against sentinels.
type Kind int

const (
	// KindUnknown is the zero value; treated as PermanentExternalError by
	// policy helpers so an unclassified error never retries forever.
	KindUnknown Kind = iota
	KindConfig
	KindTransientExternal
	KindPermanentExternal
	KindTimeout
	KindAuthorization
	KindProtocol
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config_error"
	case KindTransientExternal:
		return "transient_external_error"
	case KindPermanentExternal:
		return "permanent_external_error"
	case KindTimeout:
		return "timeout"
	case KindAuthorization:
		return "authorization_error"
	case KindProtocol:
		return "protocol_error"
	case KindInvariant:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// classified wraps an error with a Kind so it survives fmt.Errorf("%w", ...)
// chains and can be recovered with As.
type classified struct {
	kind Kind
	err  error
}

func (c *classified) Error() string { return c.err.Error() }
func (c *classified) Unwrap() error { return c.err }

// Wrap attaches kind to err. Wrapping a nil error returns nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &classified{kind: kind, err: err}
}

// Classify recovers the Kind attached by Wrap, walking the error chain.
// Returns KindUnknown if err was never wrapped with a Kind.
func Classify(err error) Kind {
	var c *classified
	if errors.As(err, &c) {
		return c.kind
	}
	return KindUnknown
}

func Config(err error) error             { return Wrap(KindConfig, err) }
func TransientExternal(err error) error   { return Wrap(KindTransientExternal, err) }
func PermanentExternal(err error) error   { return Wrap(KindPermanentExternal, err) }
func Timeout(err error) error             { return Wrap(KindTimeout, err) }
func Authorization(err error) error       { return Wrap(KindAuthorization, err) }
func Protocol(err error) error            { return Wrap(KindProtocol, err) }
func Invariant(err error) error           { return Wrap(KindInvariant, err) }

// Retryable reports whether the propagation policy in §7 calls for a
// backoff retry: transient external errors and timeouts, capped by the
// caller's own attempt counter.
func Retryable(err error) bool {
	switch Classify(err) {
	case KindTransientExternal, KindTimeout:
		return true
	default:
		return false
	}
}

// Fatal reports whether err should abort startup rather than degrade.
func Fatal(err error) bool {
	return Classify(err) == KindConfig
}
