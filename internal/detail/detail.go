// Package detail validates and renders the structured workout content of a
// plan session. The materialization engine consumes it as a collaborator:
// every session's detail must validate before any calendar write happens,
// and the rendered text becomes the calendar entry description.
package detail

import (
	"errors"
	"fmt"
	"strings"

	"peakform/coach-app/internal/domain"
)

var (
	ErrEmptySummary    = errors.New("workout detail requires a summary")
	ErrNoSteps         = errors.New("workout detail requires at least one step")
	ErrEmptyPhase      = errors.New("workout step requires a phase")
	ErrEmptyStep       = errors.New("workout step requires a description")
	ErrNegativeMinutes = errors.New("workout step duration cannot be negative")
	ErrNegativeRepeat  = errors.New("workout step repeat cannot be negative")
)

// Validator checks and renders structured workout detail. Both operations
// are pure.
type Validator interface {
	Validate(d domain.WorkoutDetail) error
	Render(d domain.WorkoutDetail) string
}

type validator struct{}

// NewValidator returns the standard detail validator/renderer.
func NewValidator() Validator {
	return validator{}
}

// Validate checks the structural invariants of a workout detail.
func (validator) Validate(d domain.WorkoutDetail) error {
	if strings.TrimSpace(d.Summary) == "" {
		return ErrEmptySummary
	}
	if len(d.Steps) == 0 {
		return ErrNoSteps
	}
	for i, step := range d.Steps {
		if strings.TrimSpace(step.Phase) == "" {
			return fmt.Errorf("step %d: %w", i, ErrEmptyPhase)
		}
		if strings.TrimSpace(step.Description) == "" {
			return fmt.Errorf("step %d: %w", i, ErrEmptyStep)
		}
		if step.DurationMinutes < 0 {
			return fmt.Errorf("step %d: %w", i, ErrNegativeMinutes)
		}
		if step.Repeat < 0 {
			return fmt.Errorf("step %d: %w", i, ErrNegativeRepeat)
		}
	}
	return nil
}

// Render produces the human-readable text for a calendar entry. Output is
// deterministic for a given detail, which keeps re-materialization of an
// unchanged plan byte-identical.
func (validator) Render(d domain.WorkoutDetail) string {
	var b strings.Builder
	b.WriteString(d.Summary)
	for _, step := range d.Steps {
		b.WriteString("\n")
		b.WriteString(step.Phase)
		b.WriteString(": ")
		b.WriteString(step.Description)
		if step.Repeat > 1 {
			fmt.Fprintf(&b, " x%d", step.Repeat)
		}
		if step.DurationMinutes > 0 {
			fmt.Fprintf(&b, " (%dmin)", step.DurationMinutes)
		}
	}
	return b.String()
}
