// Package router implements the Model Router (C3): mapping a logical model
// name to an ordered list of providers and failing over between them on
// transient errors.
package router

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the error taxonomy of §7. It classifies every error the gateway's
// core can produce, independent of which provider or adapter raised it.
type Kind string

const (
	KindInvalidRequest  Kind = "invalid_request"
	KindInvalidMessage  Kind = "invalid_message"
	KindAPIKeyMissing   Kind = "api_key_missing"
	KindInferenceClient Kind = "inference_client"
	KindInferenceServer Kind = "inference_server"
	KindSerialization   Kind = "serialization"
	KindConfig          Kind = "config"
	KindCache           Kind = "cache"
)

// Error is the gateway's single error type. It is grounded on
// providers.ProviderError in the teacher, generalized to the Kind taxonomy
// above instead of FailoverReason (the Go equivalent collapses the two
// concepts: Kind both classifies and drives retry/failover policy).
type Error struct {
	Kind        Kind
	Provider    string
	Model       string
	Status      int
	Message     string
	RawRequest  string
	RawResponse string
	Cause       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Provider != "" {
		fmt.Fprintf(&b, " provider=%s", e.Provider)
	}
	if e.Model != "" {
		fmt.Fprintf(&b, " model=%s", e.Model)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " status=%d", e.Status)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	} else if e.Cause != nil {
		fmt.Fprintf(&b, ": %s", e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func NewInvalidRequest(msg string) *Error { return newError(KindInvalidRequest, msg, nil) }
func NewInvalidMessage(msg string) *Error { return newError(KindInvalidMessage, msg, nil) }
func NewAPIKeyMissing(provider string) *Error {
	return &Error{Kind: KindAPIKeyMissing, Provider: provider, Message: "credential missing"}
}
func NewConfig(msg string) *Error       { return newError(KindConfig, msg, nil) }
func NewSerialization(err error) *Error { return newError(KindSerialization, "", err) }
func NewCache(err error) *Error         { return newError(KindCache, "", err) }

// NewInferenceClient builds a caller-attributable, non-retryable adapter
// error (4xx except 429).
func NewInferenceClient(provider, model string, status int, rawReq, rawResp string, cause error) *Error {
	return &Error{
		Kind: KindInferenceClient, Provider: provider, Model: model, Status: status,
		RawRequest: rawReq, RawResponse: rawResp, Cause: cause,
	}
}

// NewInferenceServer builds a retryable adapter error (5xx, 429, malformed
// response, or transport failure).
func NewInferenceServer(provider, model string, status int, rawReq, rawResp string, cause error) *Error {
	return &Error{
		Kind: KindInferenceServer, Provider: provider, Model: model, Status: status,
		RawRequest: rawReq, RawResponse: rawResp, Cause: cause,
	}
}

// ClassifyHTTPStatus maps an HTTP status code to the adapter-boundary error
// kind per §4.1.3: 4xx except 429 is client-attributable; everything else
// non-2xx is server/retryable. 429 is deliberately InferenceServer since the
// router retries it like a transient failure, even though it is nominally a
// 4xx.
func ClassifyHTTPStatus(status int) Kind {
	if status == 429 {
		return KindInferenceServer
	}
	if status >= 400 && status < 500 {
		return KindInferenceClient
	}
	return KindInferenceServer
}

// IsRetryable reports whether the router should retry/fail over to the next
// provider for this error, per §7's "Retried?" column.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindInferenceServer
	}
	return false
}

// ShouldStopRouting reports whether the Model Router must stop trying
// further providers and surface the error immediately — true exactly for
// InferenceClient with a non-429 status (§4.2 step 2).
func ShouldStopRouting(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindInferenceClient
	}
	return false
}

// AsError extracts the *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
