package router

import "log/slog"

// Secret wraps a credential value so it can never be accidentally logged or
// serialized (§9 design notes: "Shared secrets ... only exposes the secret
// at the call site"). It satisfies slog.LogValuer so slog.Any("cred", s)
// never leaks the underlying value.
type Secret struct {
	value string
}

func NewSecret(value string) Secret { return Secret{value: value} }

// Reveal returns the underlying secret. Callers should invoke this only at
// the adapter call site, never store the result, and never pass it to a
// logger.
func (s Secret) Reveal() string { return s.value }

func (s Secret) LogValue() slog.Value {
	if s.value == "" {
		return slog.StringValue("<empty>")
	}
	return slog.StringValue("<redacted>")
}

// CredentialBag is the per-request, read-only mapping of credential_name →
// secret supplied by the caller (§6 "credentials").
type CredentialBag map[string]Secret

// CredentialStrategyKind selects how a provider resolves its credential.
type CredentialStrategyKind int

const (
	CredentialStatic CredentialStrategyKind = iota
	CredentialDynamic
	CredentialWithFallback
)

// CredentialStrategy resolves a provider's credential at call time (§4.2).
type CredentialStrategy struct {
	Kind           CredentialStrategyKind
	StaticSecret   Secret // Static
	CredentialName string // Dynamic, and WithFallback's primary lookup
	Fallback       *CredentialStrategy
}

// Resolve looks up the credential for one adapter call. Dynamic strategies
// consult bag; WithFallback tries its named lookup first and, on failure,
// logs a warning and tries Fallback — mirroring the teacher's
// "default is tried first ... warning is logged and fallback is tried"
// rule (§4.2).
func (cs CredentialStrategy) Resolve(provider string, bag CredentialBag, log *slog.Logger) (Secret, *Error) {
	switch cs.Kind {
	case CredentialStatic:
		if cs.StaticSecret.value == "" {
			return Secret{}, NewAPIKeyMissing(provider)
		}
		return cs.StaticSecret, nil
	case CredentialDynamic:
		if s, ok := bag[cs.CredentialName]; ok {
			return s, nil
		}
		return Secret{}, NewAPIKeyMissing(provider)
	case CredentialWithFallback:
		if s, ok := bag[cs.CredentialName]; ok {
			return s, nil
		}
		if log != nil {
			log.Warn("credential lookup failed, trying fallback",
				"provider", provider, "credential_name", cs.CredentialName)
		}
		if cs.Fallback != nil {
			return cs.Fallback.Resolve(provider, bag, log)
		}
		return Secret{}, NewAPIKeyMissing(provider)
	default:
		return Secret{}, NewAPIKeyMissing(provider)
	}
}
