package form

import (
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/payload"
)

var (
	// ErrStepLocked is returned when an event targets a step whose predecessor
	// has never been satisfied.
	ErrStepLocked      = errors.New("step is locked")
	ErrUnknownSubsheet = errors.New("unknown sub-sheet")
	ErrNegativeScore   = errors.New("question score must not be negative")
)

// Options tunes gate behaviour for a form.
type Options struct {
	// Strict re-derives later steps from their predecessors on every read, so
	// editing an earlier step can un-complete later ones.
	Strict bool
}

// Step names one gate of a form, in order.
type Step int

const (
	StepArchiveVerified Step = iota + 1
	StepUploadAcknowledged
	StepDestinationURL
	StepMetadata

	StepSheetName
	StepSubsheets
)

func (s Step) String() string {
	switch s {
	case StepArchiveVerified:
		return "archive_verified"
	case StepUploadAcknowledged:
		return "upload_acknowledged"
	case StepDestinationURL:
		return "destination_url_valid"
	case StepMetadata:
		return "metadata_complete"
	case StepSheetName:
		return "sheet_name"
	case StepSubsheets:
		return "subsheets_selected"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// StepStatus is one gate as displayed to the operator.
type StepStatus struct {
	Step      Step `json:"step"`
	Completed bool `json:"completed"`
	// Unlocked reports whether the step accepts edits.
	Unlocked bool `json:"unlocked"`
}

// Incomplete describes the first gate that keeps a form from being ready. It
// is a display state, but handoff returns it as an error.
type Incomplete struct {
	Step    Step   `json:"step"`
	Message string `json:"message"`
}

func (e *Incomplete) Error() string { return e.Message }

// Form is the part of a category form every caller needs regardless of category.
type Form interface {
	Category() content.Category
	Steps() []StepStatus
	Ready() bool
	Pending() *Incomplete
	Payload() payload.Payload
}

// New returns an empty form for cat.
func New(cat content.Category, opts Options) (Form, error) {
	switch cat {
	case content.MCQ:
		return NewMCQ(), nil
	case content.CodeAnalysis, content.CodingQuestions:
		return NewCoding(cat, opts), nil
	}
	return nil, fmt.Errorf("%w: %q", content.ErrUnknownCategory, cat)
}
