// Package apperr implements the error taxonomy of spec.md §7 as a closed
// set of typed wrappers. The Task Runtime switches on these kinds to decide
// retry policy; the Executor observes only terminal outcomes (success or one
// of these, never a bare error).
package apperr

import "errors"

// Kind is one of the named error categories from spec.md §7.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindProvider           Kind = "provider"
	KindQuota              Kind = "quota"
	KindContentPolicy      Kind = "content_policy"
	KindTimeout            Kind = "timeout"
	KindIncompleteMaterials Kind = "incomplete_materials"
	KindMalformedResponse  Kind = "malformed_response"
	KindCancelled          Kind = "cancelled"
)

// Error is the concrete type every apperr constructor returns. Callers
// should use errors.As to recover the Kind rather than comparing types.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func Validation(msg string) error       { return newErr(KindValidation, msg, nil) }
func NotFound(msg string) error         { return newErr(KindNotFound, msg, nil) }
func Conflict(msg string) error         { return newErr(KindConflict, msg, nil) }
func Provider(msg string) error         { return newErr(KindProvider, msg, nil) }
func Quota(msg string) error            { return newErr(KindQuota, msg, nil) }
func ContentPolicy(msg string) error    { return newErr(KindContentPolicy, msg, nil) }
func Timeout(msg string) error          { return newErr(KindTimeout, msg, nil) }
func MalformedResponse(msg string) error {
	return newErr(KindMalformedResponse, msg, nil)
}
func Cancelled(msg string) error { return newErr(KindCancelled, msg, nil) }

// IncompleteMaterials carries the enumerated list of missing artifacts the
// Video Assembly Engine found, so the caller can drive remediation tasks.
type IncompleteMaterialsError struct {
	Missing []string
}

func (e *IncompleteMaterialsError) Error() string {
	return "incomplete materials: " + joinComma(e.Missing)
}

func IncompleteMaterials(missing []string) error {
	return &IncompleteMaterialsError{Missing: missing}
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// KindOf extracts the Kind of an error produced by this package, or ""
// if err was not constructed here. IncompleteMaterialsError has its own
// dedicated type because it carries structured data rather than a plain
// message; it maps to KindIncompleteMaterials.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var im *IncompleteMaterialsError
	if errors.As(err, &im) {
		return KindIncompleteMaterials
	}
	return ""
}

// Retryable reports whether the Task Runtime should retry a task that
// failed with err, per the propagation policy in spec.md §7.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindNotFound, KindConflict, KindContentPolicy, KindCancelled, KindIncompleteMaterials:
		return false
	case KindProvider, KindQuota, KindTimeout:
		return true
	case KindMalformedResponse:
		return true // retried once by policy, then failed permanently
	default:
		return false
	}
}
