package txerrors

// Advice tells a caller what to do about a failed operation.
type Advice string

const (
	// AdviceRetry means the operation can be started again from build.
	AdviceRetry Advice = "retry"
	// AdviceDoNotRetry means a signature may already be in flight.
	AdviceDoNotRetry Advice = "do-not-retry"
	// AdviceCheckLater means the outcome is unknown, probe the transaction id.
	AdviceCheckLater Advice = "check-later"
	// AdviceFixInput means the request itself must change.
	AdviceFixInput Advice = "fix-input"
)

// PublicKind maps component kinds onto the six kinds exposed to callers.
func PublicKind(err error) Kind {
	e, ok := As(err)
	if !ok {
		return KindUpstreamUnavailable
	}
	switch e.Kind {
	case KindNotFound:
		return KindValidation
	case KindMalformedTransaction:
		if e.Upstream != "" {
			return KindUpstreamUnavailable
		}
		return KindValidation
	}
	return e.Kind
}

// Advise classifies err for the caller.
func Advise(err error) Advice {
	e, ok := As(err)
	if !ok {
		return AdviceDoNotRetry
	}
	kind := PublicKind(err)
	if kind == KindConfirmationTimeout {
		return AdviceCheckLater
	}
	if e.Signed || kind == KindOnChain {
		return AdviceDoNotRetry
	}
	switch kind {
	case KindValidation, KindUnauthenticated:
		return AdviceFixInput
	case KindUpstreamUnavailable:
		return AdviceRetry
	}
	return AdviceDoNotRetry
}
