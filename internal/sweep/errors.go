package sweep

import "fmt"

// SpecError reports an invalid sweep specification: a missing target path or
// a malformed multiplier set. It is raised at generation time, before any
// dispatch, and aborts only the affected section's sweep.
type SpecError struct {
	Section string
	Reason  string
	Err     error
}

func (e *SpecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid sweep spec for section %q: %s: %v", e.Section, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid sweep spec for section %q: %s", e.Section, e.Reason)
}

func (e *SpecError) Unwrap() error { return e.Err }

// GenerationError reports a failed expansion for one intervention, such as
// an unsupported modulator function name. It aborts only that intervention's
// expansion.
type GenerationError struct {
	Section  string
	Function string
	Reason   string
	Err      error
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("expansion failed for section %q", e.Section)
	if e.Function != "" {
		msg += fmt.Sprintf(", modulator %q", e.Function)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error { return e.Err }
