package lookup

import "errors"

// Result is the outcome of a single lookup: exactly one of Model or Err is
// meaningful. A successful lookup may carry an empty Model when Apple's
// response contains an empty configCode element.
type Result struct {
	// Serial is the raw input as given by the caller
	Serial string

	// Key is the derived 3- or 4-character lookup key (empty if validation failed)
	Key string

	// Model is the resolved model name (valid only when Err is nil)
	Model string

	// Err is the failure, always a *LookupError when set by this package
	Err error
}

// ModelResult builds a successful Result
func ModelResult(serial, key, model string) Result {
	return Result{Serial: serial, Key: key, Model: model}
}

// FailureResult builds a failed Result
func FailureResult(serial, key string, err error) Result {
	return Result{Serial: serial, Key: key, Err: err}
}

// OK reports whether the lookup resolved to a model name
func (r Result) OK() bool {
	return r.Err == nil
}

// Message returns the model name on success and the failure message otherwise
func (r Result) Message() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Model
}

// ErrorType returns the failure category and true, or false on success
func (r Result) ErrorType() (ErrorType, bool) {
	var lerr *LookupError
	if errors.As(r.Err, &lerr) {
		return lerr.Type, true
	}
	return 0, false
}
