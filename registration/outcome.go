package registration

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies the terminal result of processing one candidate.
type Kind int

const (
	// Registered means the instance was handed to the host registry.
	Registered Kind = iota + 1
	// SkippedNotDev means the candidate is development-only and dev mode is off.
	SkippedNotDev
	// SkippedNoTarget means the host has no slot for the candidate's key.
	SkippedNoTarget
	// Failed means loading, building or binding the candidate failed.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Registered:
		return "registered"
	case SkippedNotDev:
		return "skipped_not_dev"
	case SkippedNoTarget:
		return "skipped_no_target"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result for one candidate.
type Outcome struct {
	Kind       Kind
	Identifier string
	// Name is the registration key for commands and the type name for listeners.
	Name string
	Dev  bool
	Err  error
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s %s: %v", o.Kind, o.Identifier, o.Err)
	}
	return fmt.Sprintf("%s %s (%s)", o.Kind, o.Identifier, o.Name)
}

// Report aggregates the outcomes of one registration pass.
type Report struct {
	RunID     string
	Variant   string
	Namespace string
	Deep      bool
	DevMode   bool
	Started   time.Time
	Duration  time.Duration

	// Scanned counts identifiers produced by the scanner, including types
	// that were filtered out without an outcome.
	Scanned  int
	Outcomes []Outcome

	// Aborted is set when the pass was cancelled before the scan was exhausted.
	Aborted bool
}

// Count returns the number of outcomes of the given kind.
func (r *Report) Count(kind Kind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

// Kinds returns the outcome kinds in processing order.
func (r *Report) Kinds() []Kind {
	kinds := make([]Kind, len(r.Outcomes))
	for i, o := range r.Outcomes {
		kinds[i] = o.Kind
	}
	return kinds
}

// Find returns the outcome for an identifier.
func (r *Report) Find(identifier string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Identifier == identifier {
			return o, true
		}
	}
	return Outcome{}, false
}

// Failures returns the failed outcomes.
func (r *Report) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Kind == Failed {
			failed = append(failed, o)
		}
	}
	return failed
}

// Err joins the errors of all failed outcomes. It is nil for a clean pass.
func (r *Report) Err() error {
	var errs []error
	for _, o := range r.Failures() {
		errs = append(errs, o.Err)
	}
	return errors.Join(errs...)
}

// Summary returns a one-line description of the pass.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s pass over %q: %d scanned, %d registered, %d skipped (not dev), %d skipped (no target), %d failed",
		r.Variant, r.Namespace, r.Scanned,
		r.Count(Registered), r.Count(SkippedNotDev), r.Count(SkippedNoTarget), r.Count(Failed))
	if r.Aborted {
		sb.WriteString(" (aborted)")
	}
	return sb.String()
}
