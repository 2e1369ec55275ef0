package provider

import "fmt"

// UpstreamKind classifies an UpstreamError.
type UpstreamKind string

const (
	// KindStatus means the upstream answered with a non-success status.
	KindStatus UpstreamKind = "status"
	// KindTimeout means the call exceeded its deadline.
	KindTimeout UpstreamKind = "timeout"
	// KindNetwork means the request never got an HTTP response.
	KindNetwork UpstreamKind = "network"
)

// AuthError reports a missing or unusable credential before any outbound
// request is made.
type AuthError struct {
	ProviderID string
	Reason     string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.ProviderID, e.Reason)
}

// UpstreamError reports a failed call to an upstream provider. Status is
// zero for timeout and network failures. Message holds the parsed error
// message when the upstream body was structured, otherwise the raw body.
type UpstreamError struct {
	ProviderID string
	Kind       UpstreamKind
	Status     int
	Message    string
}

func (e *UpstreamError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("%s: upstream timeout", e.ProviderID)
	case KindNetwork:
		return fmt.Sprintf("%s: upstream unreachable: %s", e.ProviderID, e.Message)
	default:
		return fmt.Sprintf("%s: upstream status %d: %s", e.ProviderID, e.Status, e.Message)
	}
}

// FormatError reports a response whose content-type or shape is not a
// recognized structured format. RawBody is kept verbatim for diagnostics;
// free text is never coerced into JSON.
type FormatError struct {
	ProviderID  string
	ContentType string
	RawBody     string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: unexpected response format %q", e.ProviderID, e.ContentType)
}
