package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Oracle is the generative backend. Complete returns a JSON object matching
// schema; Generate returns free text.
type Oracle interface {
	Complete(ctx context.Context, systemPrompt, userMessage string, schema *Schema) (json.RawMessage, error)
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Schema is the subset of JSON Schema the classifier needs.
type Schema struct {
	Type       string             `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Enum       []string           `json:"enum,omitempty"`
	Nullable   bool               `json:"nullable,omitempty"`
}

// OracleErrorKind classifies oracle failures.
type OracleErrorKind int

const (
	OracleTransport OracleErrorKind = iota
	OracleQuotaExceeded
	OracleRateLimited
	OracleInvalidOutput
)

func (k OracleErrorKind) String() string {
	switch k {
	case OracleQuotaExceeded:
		return "quota_exceeded"
	case OracleRateLimited:
		return "rate_limited"
	case OracleInvalidOutput:
		return "invalid_output"
	default:
		return "transport"
	}
}

// OracleError wraps a backend failure with its kind.
type OracleError struct {
	Kind OracleErrorKind
	Err  error
}

func (e *OracleError) Error() string {
	if e.Err == nil {
		return "oracle " + e.Kind.String()
	}
	return fmt.Sprintf("oracle %s: %v", e.Kind, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }

// NewOracleError builds an OracleError, inferring quota and rate-limit
// failures from the message when kind is OracleTransport.
func NewOracleError(kind OracleErrorKind, err error) *OracleError {
	if kind == OracleTransport && err != nil {
		kind = kindFromMessage(err.Error())
	}
	return &OracleError{Kind: kind, Err: err}
}

func kindFromMessage(msg string) OracleErrorKind {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "quota"):
		return OracleQuotaExceeded
	case strings.Contains(msg, "rate limit"):
		return OracleRateLimited
	default:
		return OracleTransport
	}
}

// ErrorKind reports the kind of any error returned by an oracle. Untyped
// errors are classified by message.
func ErrorKind(err error) OracleErrorKind {
	var oe *OracleError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return OracleTransport
	}
	return kindFromMessage(err.Error())
}

// ErrOracleUnavailable is returned by UnavailableOracle.
var ErrOracleUnavailable = errors.New("no generative backend configured")

// UnavailableOracle fails every call. It lets the service run without an API
// key; fast-path and deterministic answers still work.
type UnavailableOracle struct{}

func (UnavailableOracle) Complete(context.Context, string, string, *Schema) (json.RawMessage, error) {
	return nil, &OracleError{Kind: OracleTransport, Err: ErrOracleUnavailable}
}

func (UnavailableOracle) Generate(context.Context, string, string) (string, error) {
	return "", &OracleError{Kind: OracleTransport, Err: ErrOracleUnavailable}
}
