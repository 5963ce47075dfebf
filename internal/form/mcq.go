package form

import (
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/payload"
)

// MCQState is a snapshot of an MCQ form.
type MCQState struct {
	SheetName string   `json:"sheet_name"`
	Subsheets []string `json:"subsheets"`
}

// MCQ gates sub-sheet selection on a spreadsheet name.
type MCQ struct {
	sheetName string
	subsheets []string
}

func NewMCQ() *MCQ { return &MCQ{} }

func (m *MCQ) Category() content.Category { return content.MCQ }

func (m *MCQ) SetSheetName(name string) { m.sheetName = name }

func (m *MCQ) sheetNamed() bool { return strings.TrimSpace(m.sheetName) != "" }

// ToggleSubsheet adds name to the selection, or removes it when already
// selected. Selection order is kept.
func (m *MCQ) ToggleSubsheet(name string) error {
	if !m.sheetNamed() {
		return fmt.Errorf("%w: enter the spreadsheet name first", ErrStepLocked)
	}
	if !content.IsSubsheet(name) {
		return fmt.Errorf("%w: %q", ErrUnknownSubsheet, name)
	}
	for i, s := range m.subsheets {
		if s == name {
			m.subsheets = append(m.subsheets[:i:i], m.subsheets[i+1:]...)
			return nil
		}
	}
	m.subsheets = append(m.subsheets, name)
	return nil
}

func (m *MCQ) Selected(name string) bool {
	for _, s := range m.subsheets {
		if s == name {
			return true
		}
	}
	return false
}

func (m *MCQ) State() MCQState {
	subs := make([]string, len(m.subsheets))
	copy(subs, m.subsheets)
	return MCQState{SheetName: m.sheetName, Subsheets: subs}
}

func (m *MCQ) Steps() []StepStatus {
	return []StepStatus{
		{Step: StepSheetName, Completed: m.sheetNamed(), Unlocked: true},
		{Step: StepSubsheets, Completed: len(m.subsheets) > 0, Unlocked: m.sheetNamed()},
	}
}

func (m *MCQ) Ready() bool { return m.Pending() == nil }

func (m *MCQ) Pending() *Incomplete {
	if !m.sheetNamed() {
		return &Incomplete{Step: StepSheetName, Message: "Spreadsheet name is missing"}
	}
	if len(m.subsheets) == 0 {
		return &Incomplete{Step: StepSubsheets, Message: "No sub-sheets selected"}
	}
	return nil
}

func (m *MCQ) Payload() payload.Payload {
	return payload.BuildMCQ(m.sheetName, m.subsheets)
}
