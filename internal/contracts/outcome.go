package contracts

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// FailureKind classifies why a provider call produced no usable data.
// The zero value means success.
type FailureKind string

const (
	KindMissingCredentials FailureKind = "missing_credentials" // key required, none configured; never sent
	KindAuthRejected       FailureKind = "auth_rejected"       // provider answered 401/403
	KindTimeout            FailureKind = "timeout"
	KindRateLimited        FailureKind = "rate_limited" // 429, provider-declared, or local quota
	KindNotFound           FailureKind = "not_found"
	KindServerError        FailureKind = "server_error"
	KindNetworkError       FailureKind = "network_error"
)

// Transient reports whether the failure may clear on a later run
func (k FailureKind) Transient() bool {
	switch k {
	case KindTimeout, KindNetworkError, KindRateLimited, KindServerError:
		return true
	}
	return false
}

// Outcome is the tagged result of one gateway call or adapter fetch
// ⭐ SSOT: Gateway 경계를 넘는 모든 결과는 Outcome (panic/error 없음)
type Outcome struct {
	Kind       FailureKind `json:"kind,omitempty"`
	StatusCode int         `json:"status_code,omitempty"`
	Message    string      `json:"message,omitempty"`
	Attempted  bool        `json:"attempted"` // a network request was actually issued

	Payload []byte      `json:"-"`
	Header  http.Header `json:"-"`

	// Data is the adapter's parsed record; nil for raw gateway outcomes
	Data any `json:"data,omitempty"`
}

// Success builds a successful outcome around a raw response
func Success(statusCode int, payload []byte, header http.Header) Outcome {
	return Outcome{
		StatusCode: statusCode,
		Attempted:  true,
		Payload:    payload,
		Header:     header,
	}
}

// Failure builds a failed outcome
func Failure(kind FailureKind, format string, args ...interface{}) Outcome {
	return Outcome{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// OK reports whether the outcome carries data
func (o Outcome) OK() bool {
	return o.Kind == ""
}

// WithData returns a copy carrying the parsed adapter record
func (o Outcome) WithData(data any) Outcome {
	o.Data = data
	return o
}

// WithStatus returns a copy marked as attempted with the given HTTP status
func (o Outcome) WithStatus(code int) Outcome {
	o.StatusCode = code
	o.Attempted = true
	return o
}

// Decode unmarshals the raw payload into v
func (o Outcome) Decode(v any) error {
	if len(o.Payload) == 0 {
		return fmt.Errorf("empty payload")
	}
	if err := json.Unmarshal(o.Payload, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// String renders the outcome for logs and CLI output
func (o Outcome) String() string {
	if o.OK() {
		return fmt.Sprintf("ok (%d)", o.StatusCode)
	}
	if o.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %s", o.Kind, o.StatusCode, o.Message)
	}
	return fmt.Sprintf("%s: %s", o.Kind, o.Message)
}
