package archive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-loader/internal/content"
)

var (
	ErrStructureMismatch = errors.New("required archive structure missing")
	ErrEmptyArchive      = errors.New("archive is empty")
	ErrNotApplicable     = errors.New("category has no archive step")
)

type Reason string

const (
	ReasonOK                Reason = "ok"
	ReasonEmpty             Reason = "empty_archive"
	ReasonStructureMismatch Reason = "structure_mismatch"
	ReasonUnreadable        Reason = "archive_unreadable"
	ReasonNotApplicable     Reason = "not_applicable"
)

// Outcome is the result of one validation attempt.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reason  Reason `json:"reason"`

	cause error
}

// Err maps a failed outcome onto the archive error taxonomy; nil on success.
func (o Outcome) Err() error {
	switch o.Reason {
	case ReasonOK:
		return nil
	case ReasonEmpty:
		return ErrEmptyArchive
	case ReasonNotApplicable:
		return ErrNotApplicable
	case ReasonUnreadable:
		if o.cause != nil {
			return o.cause
		}
		return &ReadError{Err: errors.New(o.Message)}
	}
	return fmt.Errorf("%w: %s", ErrStructureMismatch, o.Message)
}

const (
	codingFolderPrefix = "Coding Questions/"
	codingFileName     = "coding_questions"
)

var codeAnalysisMarkers = []string{"code analysis mcqs", "code_analysis_mcqs"}

// Validate decides whether entries carry the structure cat requires. It is
// pure: the same input always yields the same Outcome.
func Validate(entries []Entry, cat content.Category) Outcome {
	if !cat.RequiresArchive() {
		return Outcome{
			Message: fmt.Sprintf("%s content has no archive step.", cat),
			Reason:  ReasonNotApplicable,
		}
	}
	if len(entries) == 0 {
		return Outcome{
			Message: "Archive is empty. " + guidance(cat),
			Reason:  ReasonEmpty,
		}
	}

	switch cat {
	case content.CodingQuestions:
		return validateCoding(entries)
	case content.CodeAnalysis:
		return validateCodeAnalysis(entries)
	}
	return Outcome{Message: guidance(cat), Reason: ReasonStructureMismatch}
}

func validateCoding(entries []Entry) Outcome {
	for _, e := range entries {
		if strings.HasPrefix(e.Path, codingFolderPrefix) {
			return Outcome{
				Success: true,
				Message: `Found "Coding Questions" folder.`,
				Reason:  ReasonOK,
			}
		}
		if e.Path == codingFileName && !e.IsDir {
			return Outcome{
				Success: true,
				Message: `Found "coding_questions" file.`,
				Reason:  ReasonOK,
			}
		}
	}
	return Outcome{Message: guidance(content.CodingQuestions), Reason: ReasonStructureMismatch}
}

func validateCodeAnalysis(entries []Entry) Outcome {
	for _, e := range entries {
		p := strings.ToLower(e.Path)
		for _, m := range codeAnalysisMarkers {
			if strings.Contains(p, m) {
				return Outcome{
					Success: true,
					Message: `Found "Code Analysis MCQs" folder.`,
					Reason:  ReasonOK,
				}
			}
		}
	}
	return Outcome{Message: guidance(content.CodeAnalysis), Reason: ReasonStructureMismatch}
}

func guidance(cat content.Category) string {
	switch cat {
	case content.CodingQuestions:
		return `Archive must contain a "Coding Questions" folder or a "coding_questions" file.`
	case content.CodeAnalysis:
		return `Archive must contain a "Code Analysis MCQs" folder.`
	}
	return ""
}

// ReadFailure is the outcome reported when the archive could not be read at
// all. It never reads as a missing structure.
func ReadFailure(err error) Outcome {
	var re *ReadError
	if !errors.As(err, &re) {
		re = &ReadError{Err: err}
	}
	return Outcome{
		Message: "Unable to read archive: " + re.Err.Error(),
		Reason:  ReasonUnreadable,
		cause:   re,
	}
}

// Check inspects data and validates it for cat in one step.
func Check(data []byte, cat content.Category) ([]Entry, Outcome) {
	entries, err := Inspect(data)
	if err != nil {
		return nil, ReadFailure(err)
	}
	return entries, Validate(entries, cat)
}
