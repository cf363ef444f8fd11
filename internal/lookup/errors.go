package lookup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// Messages shown to the user for each failure category. Front ends and
// external tooling match on these strings, so they must not change.
const (
	MsgEmptyInput        = "No Serial Number found"
	MsgInvalidLength     = "Not a valid length"
	MsgEmptyResponse     = "Data was nil, no error was thrown. ABORT! ABORT!"
	MsgMalformedResponse = "Invalid input! Please try again."
)

// ErrorType represents the category of a lookup failure
type ErrorType int

const (
	// ErrTypeEmptyInput indicates the serial number was missing or blank
	ErrTypeEmptyInput ErrorType = iota
	// ErrTypeInvalidLength indicates the serial number length is not 3, 4, 11 or 12
	ErrTypeInvalidLength
	// ErrTypeTransport indicates the HTTP request itself failed
	ErrTypeTransport
	// ErrTypeEmptyResponse indicates the request succeeded but returned no body
	ErrTypeEmptyResponse
	// ErrTypeMalformedResponse indicates the body had no root/configCode element
	ErrTypeMalformedResponse
)

// TransportSubtype provides more specific transport error classification
type TransportSubtype int

const (
	TransportGeneral TransportSubtype = iota
	TransportTimeout
	TransportCanceled
	TransportConnectionRefused
	TransportDNS
	TransportHostUnreachable
	TransportNetworkUnreachable
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeEmptyInput:
		return "Empty Input"
	case ErrTypeInvalidLength:
		return "Invalid Length"
	case ErrTypeTransport:
		return "Transport Error"
	case ErrTypeEmptyResponse:
		return "Empty Response"
	case ErrTypeMalformedResponse:
		return "Malformed Response"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Slug returns a stable machine-readable identifier for the error type
func (et ErrorType) Slug() string {
	switch et {
	case ErrTypeEmptyInput:
		return "empty_input"
	case ErrTypeInvalidLength:
		return "invalid_length"
	case ErrTypeTransport:
		return "transport"
	case ErrTypeEmptyResponse:
		return "empty_response"
	case ErrTypeMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// ParseErrorType is the inverse of Slug
func ParseErrorType(slug string) (ErrorType, bool) {
	for _, et := range []ErrorType{
		ErrTypeEmptyInput,
		ErrTypeInvalidLength,
		ErrTypeTransport,
		ErrTypeEmptyResponse,
		ErrTypeMalformedResponse,
	} {
		if et.Slug() == slug {
			return et, true
		}
	}
	return 0, false
}

// IsValidation reports whether the error type is raised before any request is made
func (et ErrorType) IsValidation() bool {
	return et == ErrTypeEmptyInput || et == ErrTypeInvalidLength
}

// LookupError represents a failed serial number lookup
type LookupError struct {
	Type      ErrorType        // Category of error
	Message   string           // Human-readable error message
	Err       error            // Underlying error (if any)
	Subtype   TransportSubtype // More specific transport error type
	Endpoint  string           // Endpoint that was queried (for context)
	Retryable bool             // Whether trying again could succeed
}

// Error returns the user-facing message. Unlike wrapped errors elsewhere,
// the cause is not appended: the message is what front ends display.
func (e *LookupError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error for error chain inspection
func (e *LookupError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is match any LookupError of the same type
func (e *LookupError) Is(target error) bool {
	t, ok := target.(*LookupError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// Sentinel values for errors.Is checks
var (
	ErrEmptyInput        = &LookupError{Type: ErrTypeEmptyInput}
	ErrInvalidLength     = &LookupError{Type: ErrTypeInvalidLength}
	ErrTransport         = &LookupError{Type: ErrTypeTransport}
	ErrEmptyResponse     = &LookupError{Type: ErrTypeEmptyResponse}
	ErrMalformedResponse = &LookupError{Type: ErrTypeMalformedResponse}
)

// NewEmptyInputError creates the error returned for a blank serial number
func NewEmptyInputError() *LookupError {
	return &LookupError{Type: ErrTypeEmptyInput, Message: MsgEmptyInput}
}

// NewInvalidLengthError creates the error returned for a serial of the wrong length
func NewInvalidLengthError() *LookupError {
	return &LookupError{Type: ErrTypeInvalidLength, Message: MsgInvalidLength}
}

// NewEmptyResponseError creates the error returned when the endpoint sends no body
func NewEmptyResponseError(endpoint string) *LookupError {
	return &LookupError{
		Type:      ErrTypeEmptyResponse,
		Message:   MsgEmptyResponse,
		Endpoint:  endpoint,
		Retryable: true,
	}
}

// NewMalformedResponseError creates the error returned when root/configCode is missing
func NewMalformedResponseError(endpoint string, err error) *LookupError {
	return &LookupError{
		Type:     ErrTypeMalformedResponse,
		Message:  MsgMalformedResponse,
		Err:      err,
		Endpoint: endpoint,
	}
}

// NewTransportError creates a transport error whose message is the
// transport's own diagnostic text, with automatic classification
func NewTransportError(endpoint string, err error) *LookupError {
	classified := ClassifyTransportError(err, endpoint)
	if classified != nil {
		return classified
	}
	return &LookupError{
		Type:      ErrTypeTransport,
		Message:   "unknown transport error",
		Endpoint:  endpoint,
		Retryable: true,
	}
}

// ClassifyTransportError analyzes a transport error and records its subtype.
// The message is always err.Error() so the user sees what the transport said.
func ClassifyTransportError(err error, endpoint string) *LookupError {
	if err == nil {
		return nil
	}

	lerr := &LookupError{
		Type:      ErrTypeTransport,
		Message:   err.Error(),
		Err:       err,
		Subtype:   TransportGeneral,
		Endpoint:  endpoint,
		Retryable: true,
	}

	switch {
	case errors.Is(err, context.Canceled):
		lerr.Subtype = TransportCanceled
		lerr.Retryable = false
		return lerr
	case errors.Is(err, context.DeadlineExceeded), os.IsTimeout(err):
		lerr.Subtype = TransportTimeout
		return lerr
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		lerr.Subtype = TransportDNS
		lerr.Retryable = dnsErr.IsTemporary
		return lerr
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			lerr.Subtype = TransportConnectionRefused
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			lerr.Subtype = TransportHostUnreachable
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			lerr.Subtype = TransportNetworkUnreachable
		}
		return lerr
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		lerr.Subtype = TransportTimeout
	}

	return lerr
}

func errorType(err error) (ErrorType, bool) {
	var lerr *LookupError
	if errors.As(err, &lerr) {
		return lerr.Type, true
	}
	return 0, false
}

// IsEmptyInput checks if an error is an empty input error
func IsEmptyInput(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeEmptyInput
}

// IsInvalidLength checks if an error is an invalid length error
func IsInvalidLength(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeInvalidLength
}

// IsTransportError checks if an error is a transport error
func IsTransportError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeTransport
}

// IsEmptyResponse checks if an error is an empty response error
func IsEmptyResponse(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeEmptyResponse
}

// IsMalformedResponse checks if an error is a malformed response error
func IsMalformedResponse(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeMalformedResponse
}

// IsValidationError checks if an error was raised before any request was sent
func IsValidationError(err error) bool {
	t, ok := errorType(err)
	return ok && t.IsValidation()
}

// IsRetryable checks if repeating the lookup could succeed
func IsRetryable(err error) bool {
	var lerr *LookupError
	if errors.As(err, &lerr) {
		return lerr.Retryable
	}
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	var lerr *LookupError
	if !errors.As(err, &lerr) {
		return "An unexpected error occurred. Please try again."
	}

	return strings.Join(append([]string{hintTitle(lerr)}, troubleshootingLines(lerr)...), "\n")
}

// GetTroubleshootingSteps returns the bullet points of the troubleshooting hint
func GetTroubleshootingSteps(err error) []string {
	var lerr *LookupError
	if !errors.As(err, &lerr) {
		return nil
	}
	lines := troubleshootingLines(lerr)
	steps := make([]string, 0, len(lines))
	for _, line := range lines {
		if s, ok := strings.CutPrefix(line, "  • "); ok {
			steps = append(steps, s)
		}
	}
	return steps
}

func hintTitle(lerr *LookupError) string {
	switch lerr.Type {
	case ErrTypeEmptyInput:
		return "No serial number was entered."
	case ErrTypeInvalidLength:
		return "Serial numbers are 11 or 12 characters long."
	case ErrTypeEmptyResponse:
		return "Apple's lookup service answered with an empty response."
	case ErrTypeMalformedResponse:
		return "Apple's lookup service did not recognise this serial number."
	case ErrTypeTransport:
		switch lerr.Subtype {
		case TransportTimeout:
			return "The lookup service did not respond in time."
		case TransportCanceled:
			return "The lookup was cancelled."
		case TransportConnectionRefused:
			return "The lookup service refused the connection."
		case TransportDNS:
			return "Could not resolve the lookup service hostname."
		default:
			return "Network communication failed."
		}
	default:
		return "An error occurred."
	}
}

func troubleshootingLines(lerr *LookupError) []string {
	switch lerr.Type {
	case ErrTypeEmptyInput:
		return []string{
			"Troubleshooting:",
			"  • Type the full serial number or its last 3 or 4 characters",
			"  • The serial is printed on the device and in About This Mac",
		}
	case ErrTypeInvalidLength:
		return []string{
			"Troubleshooting:",
			"  • Enter all 11 or 12 characters of the serial number",
			"  • Or enter only the last 3 (11-character serials) or 4 (12-character serials)",
			"  • Do not include spaces or dashes",
		}
	case ErrTypeEmptyResponse:
		return []string{
			"Troubleshooting:",
			"  • Try the lookup again in a few moments",
			"  • Check that the configured endpoint is correct",
		}
	case ErrTypeMalformedResponse:
		return []string{
			"Troubleshooting:",
			"  • Double-check the serial number for typos (0 vs O, 1 vs I)",
			"  • Newer devices with randomised serials are not in this database",
			"  • Check that the configured endpoint is Apple's product endpoint",
		}
	case ErrTypeTransport:
		switch lerr.Subtype {
		case TransportTimeout:
			return []string{
				"Troubleshooting:",
				"  • Check your internet connection",
				"  • Try increasing the timeout (--timeout)",
			}
		case TransportCanceled:
			return nil
		case TransportDNS:
			return []string{
				"Troubleshooting:",
				"  • Check your network DNS settings",
				"  • Verify the endpoint hostname: " + lerr.Endpoint,
			}
		case TransportConnectionRefused:
			return []string{
				"Troubleshooting:",
				"  • Verify the endpoint URL and port: " + lerr.Endpoint,
				"  • A proxy or firewall may be blocking plain HTTP requests",
			}
		default:
			return []string{
				"Troubleshooting:",
				"  • Check your network connection",
				"  • A proxy or firewall may be blocking plain HTTP requests",
			}
		}
	default:
		return nil
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var lerr *LookupError
	if !errors.As(err, &lerr) {
		return err.Error()
	}

	if lerr.Type != ErrTypeTransport {
		return lerr.Message
	}

	switch lerr.Subtype {
	case TransportTimeout:
		return "Lookup service not responding (timeout)"
	case TransportCanceled:
		return "Lookup cancelled"
	case TransportConnectionRefused:
		return "Lookup service refused connection"
	case TransportDNS:
		return "Cannot resolve lookup service hostname"
	case TransportHostUnreachable:
		return "Lookup service unreachable - check network connection"
	case TransportNetworkUnreachable:
		return "Network unreachable - check connection"
	default:
		return "Network error - check connection"
	}
}
